package wifi

import (
	"context"

	"github.com/paulmach/orb"
)

// Filter is an optional equality filter for listing. Empty fields match everything.
type Filter struct {
	Neighborhood string
	District     string
}

// Store is durable keyed storage of access points.
//
// List orders by id. FindWithin orders by ellipsoidal distance from center,
// then id; the radius is inclusive. Get returns (nil, nil) when the id does
// not exist. BulkUpsert skips rows whose id already exists and reports how
// many rows were actually inserted.
type Store interface {
	Count(ctx context.Context, f Filter) (int64, error)
	List(ctx context.Context, f Filter, w Window) ([]AccessPoint, error)
	Get(ctx context.Context, id string) (*AccessPoint, error)

	CountWithin(ctx context.Context, center orb.Point, radius float64) (int64, error)
	FindWithin(ctx context.Context, center orb.Point, radius float64, w Window) ([]AccessPoint, error)

	BulkUpsert(ctx context.Context, records []AccessPoint) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)

	// Transaction runs fn against a store bound to a single transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	Ping(ctx context.Context) error
	Close() error
}
