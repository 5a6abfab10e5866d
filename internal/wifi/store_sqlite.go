package wifi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/EmpoweredVote/wifi-points/internal/geo"
	"github.com/paulmach/orb"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// Float noise allowed on the radius boundary when rechecking distances in Go.
const boundaryTolerance = 1e-6 // meters

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS access_points (
	id                TEXT PRIMARY KEY,
	program           TEXT NOT NULL,
	installation_date TEXT NOT NULL,
	latitude          REAL NOT NULL CHECK (latitude BETWEEN -90 AND 90),
	longitude         REAL NOT NULL CHECK (longitude BETWEEN -180 AND 180),
	neighborhood      TEXT NOT NULL,
	district          TEXT NOT NULL,
	location          BLOB NOT NULL,
	created_at        TEXT NOT NULL,
	updated_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_access_points_lat_lon ON access_points (latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_access_points_program ON access_points (program);
CREATE INDEX IF NOT EXISTS idx_access_points_neighborhood ON access_points (neighborhood);
CREATE INDEX IF NOT EXISTS idx_access_points_district ON access_points (district);
`

const selectColumns = `id, program, installation_date, latitude, longitude, neighborhood, district, location, created_at, updated_at`

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore keeps access points in SQLite. SQLite has no geography type, so
// radius queries prefilter on a lat/lon bounding box (indexed) and recheck the
// exact WGS84 distance in Go.
type SQLiteStore struct {
	db *sql.DB
	q  querier
	tx *sql.Tx
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and migrates) the database at path.
// If path is empty, an in-memory database is used.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		dsn = path
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: one writer, and ":memory:" is per-connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: sqlDB, q: sqlDB}, nil
}

func filterWhere(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Neighborhood != "" {
		conds = append(conds, "neighborhood = ?")
		args = append(args, f.Neighborhood)
	}
	if f.District != "" {
		conds = append(conds, "district = ?")
		args = append(args, f.District)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *SQLiteStore) Count(ctx context.Context, f Filter) (int64, error) {
	where, args := filterWhere(f)
	var n int64
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM access_points`+where, args...).Scan(&n)
	return n, storeError("count access points", err)
}

func (s *SQLiteStore) List(ctx context.Context, f Filter, w Window) ([]AccessPoint, error) {
	where, args := filterWhere(f)
	args = append(args, w.Limit, w.Offset)

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM access_points`+where+` ORDER BY id LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, storeError("list access points", err)
	}
	defer rows.Close()

	var out []AccessPoint
	for rows.Next() {
		ap, err := scanAccessPoint(rows)
		if err != nil {
			return nil, storeError("scan access point", err)
		}
		out = append(out, ap)
	}
	return out, storeError("list access points", rows.Err())
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*AccessPoint, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM access_points WHERE id = ?`, id)
	ap, err := scanAccessPoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("get access point", err)
	}
	return &ap, nil
}

type scoredPoint struct {
	ap       AccessPoint
	distance float64
}

// within returns every point inside radius, ordered by (distance, id).
func (s *SQLiteStore) within(ctx context.Context, center orb.Point, radius float64) ([]scoredPoint, error) {
	bounds := geo.SearchBounds(center, radius)

	var (
		lonConds []string
		args     []any
	)
	minLat, maxLat := bounds[0].Min.Lat(), bounds[0].Max.Lat()
	args = append(args, minLat, maxLat)
	for _, b := range bounds {
		lonConds = append(lonConds, "longitude BETWEEN ? AND ?")
		args = append(args, b.Min.Lon(), b.Max.Lon())
	}

	query := `SELECT ` + selectColumns + ` FROM access_points
		WHERE latitude BETWEEN ? AND ? AND (` + strings.Join(lonConds, " OR ") + `)`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("find access points within radius", err)
	}
	defer rows.Close()

	var hits []scoredPoint
	for rows.Next() {
		ap, err := scanAccessPoint(rows)
		if err != nil {
			return nil, storeError("scan access point", err)
		}
		d := geo.Distance(center, ap.Location.Point())
		if d <= radius+boundaryTolerance {
			hits = append(hits, scoredPoint{ap: ap, distance: d})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("find access points within radius", err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}
		return hits[i].ap.ID < hits[j].ap.ID
	})
	return hits, nil
}

func (s *SQLiteStore) CountWithin(ctx context.Context, center orb.Point, radius float64) (int64, error) {
	hits, err := s.within(ctx, center, radius)
	if err != nil {
		return 0, err
	}
	return int64(len(hits)), nil
}

func (s *SQLiteStore) FindWithin(ctx context.Context, center orb.Point, radius float64, w Window) ([]AccessPoint, error) {
	hits, err := s.within(ctx, center, radius)
	if err != nil {
		return nil, err
	}
	if w.Offset >= len(hits) {
		return nil, nil
	}
	end := min(w.Offset+w.Limit, len(hits))

	out := make([]AccessPoint, 0, end-w.Offset)
	for _, h := range hits[w.Offset:end] {
		out = append(out, h.ap)
	}
	return out, nil
}

const insertSQL = `INSERT OR IGNORE INTO access_points (` + selectColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *SQLiteStore) BulkUpsert(ctx context.Context, records []AccessPoint) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var inserted int64
	err := s.Transaction(ctx, func(txStore Store) error {
		tx := txStore.(*SQLiteStore)
		stmt, err := tx.tx.PrepareContext(ctx, insertSQL)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := time.Now().UTC()
		for i := range records {
			ap := records[i]
			if err := ap.Prepare(now); err != nil {
				return fmt.Errorf("record %q: %w", ap.ID, err)
			}
			blob, err := ap.Location.EWKB()
			if err != nil {
				return fmt.Errorf("record %q: encode location: %w", ap.ID, err)
			}
			res, err := stmt.ExecContext(ctx,
				ap.ID, ap.Program, formatTime(ap.InstallationDate),
				ap.Latitude, ap.Longitude, ap.Neighborhood, ap.District,
				blob, formatTime(now), formatTime(now))
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			inserted += n
		}
		return nil
	})
	if err != nil {
		return 0, storeError("insert access points", err)
	}
	return inserted, nil
}

func (s *SQLiteStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM access_points`)
	if err != nil {
		return 0, storeError("delete access points", err)
	}
	n, err := res.RowsAffected()
	return n, storeError("delete access points", err)
}

// Transaction runs fn in a transaction. Nested calls reuse the outer one.
func (s *SQLiteStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op once committed
	}()

	if err := fn(&SQLiteStore{db: s.db, q: tx, tx: tx}); err != nil {
		return err
	}
	return storeError("commit transaction", tx.Commit())
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return storeError("ping", s.db.PingContext(ctx))
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccessPoint(row rowScanner) (AccessPoint, error) {
	var ap AccessPoint
	var installed, createdAt, updatedAt string
	if err := row.Scan(
		&ap.ID, &ap.Program, &installed,
		&ap.Latitude, &ap.Longitude, &ap.Neighborhood, &ap.District,
		&ap.Location, &createdAt, &updatedAt,
	); err != nil {
		return AccessPoint{}, err
	}

	var err error
	if ap.InstallationDate, err = parseTime(installed); err != nil {
		return AccessPoint{}, err
	}
	if ap.CreatedAt, err = parseTime(createdAt); err != nil {
		return AccessPoint{}, err
	}
	if ap.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return AccessPoint{}, err
	}
	return ap, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
