package wifi

import (
	"context"
	"errors"

	"github.com/EmpoweredVote/wifi-points/internal/db"
	"github.com/paulmach/orb"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Center point as geography. Args: lon, lat.
const centerSQL = `ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography`

// ST_DWithin on geography with use_spheroid = true is inclusive (distance <= radius).
const withinSQL = `ST_DWithin(location, ` + centerSQL + `, ?, true)`

// PostGISStore keeps access points in Postgres with a geography column and a
// GIST index on it.
type PostGISStore struct {
	db *gorm.DB
}

var _ Store = (*PostGISStore)(nil)

func NewPostGISStore(gdb *gorm.DB) *PostGISStore {
	return &PostGISStore{db: gdb}
}

// Migrate creates the postgis extension, the wifi schema, the table and its indexes.
func (s *PostGISStore) Migrate(ctx context.Context) error {
	tx := s.db.WithContext(ctx)

	if err := db.EnsureExtension(tx, "postgis"); err != nil {
		return storeError("enable postgis", err)
	}
	if err := db.EnsureSchema(tx, "wifi"); err != nil {
		return storeError("ensure schema wifi", err)
	}
	if err := tx.AutoMigrate(&AccessPoint{}); err != nil {
		return storeError("auto-migrate access_points", err)
	}
	if err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_access_points_location
		ON wifi.access_points USING GIST (location);
	`).Error; err != nil {
		return storeError("create idx_access_points_location", err)
	}
	return nil
}

func filterScope(f Filter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.Neighborhood != "" {
			q = q.Where("neighborhood = ?", f.Neighborhood)
		}
		if f.District != "" {
			q = q.Where("district = ?", f.District)
		}
		return q
	}
}

func (s *PostGISStore) Count(ctx context.Context, f Filter) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&AccessPoint{}).Scopes(filterScope(f)).Count(&n).Error
	return n, storeError("count access points", err)
}

func (s *PostGISStore) List(ctx context.Context, f Filter, w Window) ([]AccessPoint, error) {
	var out []AccessPoint
	err := s.db.WithContext(ctx).
		Scopes(filterScope(f)).
		Order("id").
		Offset(w.Offset).
		Limit(w.Limit).
		Find(&out).Error
	if err != nil {
		return nil, storeError("list access points", err)
	}
	return out, nil
}

func (s *PostGISStore) Get(ctx context.Context, id string) (*AccessPoint, error) {
	var ap AccessPoint
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&ap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("get access point", err)
	}
	return &ap, nil
}

func (s *PostGISStore) CountWithin(ctx context.Context, center orb.Point, radius float64) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&AccessPoint{}).
		Where(withinSQL, center.Lon(), center.Lat(), radius).
		Count(&n).Error
	return n, storeError("count access points within radius", err)
}

func (s *PostGISStore) FindWithin(ctx context.Context, center orb.Point, radius float64, w Window) ([]AccessPoint, error) {
	var out []AccessPoint
	err := s.db.WithContext(ctx).
		Where(withinSQL, center.Lon(), center.Lat(), radius).
		Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:                `ST_Distance(location, ` + centerSQL + `, true), id`,
			Vars:               []any{center.Lon(), center.Lat()},
			WithoutParentheses: true,
		}}).
		Offset(w.Offset).
		Limit(w.Limit).
		Find(&out).Error
	if err != nil {
		return nil, storeError("find access points within radius", err)
	}
	return out, nil
}

func (s *PostGISStore) BulkUpsert(ctx context.Context, records []AccessPoint) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(&records)
	return res.RowsAffected, storeError("insert access points", res.Error)
}

func (s *PostGISStore) DeleteAll(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("1 = 1").Delete(&AccessPoint{})
	return res.RowsAffected, storeError("delete access points", res.Error)
}

func (s *PostGISStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostGISStore{db: tx})
	})
}

func (s *PostGISStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return storeError("ping", err)
	}
	return storeError("ping", sqlDB.PingContext(ctx))
}

func (s *PostGISStore) Close() error {
	return db.Close(s.db)
}
