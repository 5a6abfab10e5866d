package wifi

import (
	"context"
	"os"
	"testing"

	"github.com/EmpoweredVote/wifi-points/internal/db"
	"github.com/EmpoweredVote/wifi-points/internal/geo"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newPostGISStore connects to DATABASE_URL and empties the table. Tests are
// skipped when no database is configured.
func newPostGISStore(t *testing.T) *PostGISStore {
	t.Helper()
	_ = godotenv.Load("../../.env.local")

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping PostGIS integration test")
	}

	ctx := context.Background()
	gdb, err := db.Connect(ctx, dsn, zap.NewNop())
	require.NoError(t, err)

	s := NewPostGISStore(gdb)
	require.NoError(t, s.Migrate(ctx))
	_, err = s.DeleteAll(ctx)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = s.DeleteAll(context.Background())
		_ = s.Close()
	})
	return s
}

func TestPostGISStore_Integration(t *testing.T) {
	s := newPostGISStore(t)
	ctx := context.Background()

	seed(t, s,
		pointAt("B", 90, 500),
		pointAt("A", 0, 0),
		pointAt("far", 180, 5000),
	)

	t.Run("insert or ignore", func(t *testing.T) {
		n, err := s.BulkUpsert(ctx, []AccessPoint{pointAt("A", 0, 0), pointAt("new", 0, 50)})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("list orders by id", func(t *testing.T) {
		got, err := s.List(ctx, Filter{}, Window{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "far", "new"}, ids(got))
	})

	t.Run("get round trips location", func(t *testing.T) {
		got, err := s.Get(ctx, "B")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.InDelta(t, got.Latitude, got.Location.Lat(), 1e-9)
		assert.InDelta(t, got.Longitude, got.Location.Lon(), 1e-9)

		missing, err := s.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("find within orders by distance", func(t *testing.T) {
		got, err := s.FindWithin(ctx, testCenter, 1000, Window{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "new", "B"}, ids(got))

		n, err := s.CountWithin(ctx, testCenter, 1000)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("boundary", func(t *testing.T) {
		b, err := s.Get(ctx, "B")
		require.NoError(t, err)
		exact := geo.Distance(testCenter, b.Location.Point())

		n, err := s.CountWithin(ctx, geo.NewPoint(testCenter.Lat(), testCenter.Lon()), exact-0.01)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("transaction rollback", func(t *testing.T) {
		err := s.Transaction(ctx, func(tx Store) error {
			if _, err := tx.DeleteAll(ctx); err != nil {
				return err
			}
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		n, err := s.Count(ctx, Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
	})
}
