package wifi

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/EmpoweredVote/wifi-points/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenStore(t *testing.T) {
	cfg := config.Default()
	cfg.Driver = config.DriverSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "points.db")

	s, err := OpenStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &SQLiteStore{}, s)

	cfg.Driver = "oracle"
	_, err = OpenStore(context.Background(), cfg, zap.NewNop())
	assert.ErrorIs(t, err, config.ErrUnknownDriver)
}
