package wifi

import (
	"context"
	"fmt"

	"github.com/EmpoweredVote/wifi-points/internal/config"
	"github.com/EmpoweredVote/wifi-points/internal/db"
	"go.uber.org/zap"
)

// OpenStore connects the configured backend and makes sure its schema exists.
func OpenStore(ctx context.Context, cfg config.Config, log *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		gdb, err := db.Connect(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		s := NewPostGISStore(gdb)
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("migrate postgis store: %w", err)
		}
		log.Info("Using PostGIS store")
		return s, nil

	case config.DriverSQLite:
		s, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("Using SQLite store", zap.String("path", cfg.SQLitePath))
		return s, nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.Driver)
	}
}
