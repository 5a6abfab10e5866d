package wifi

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/EmpoweredVote/wifi-points/internal/geo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultRadiusMeters = 1000.0
	MaxRadiusMeters     = 50_000.0
)

// Service is the read-only query engine over a Store.
type Service struct {
	store   Store
	timeout time.Duration
	log     *zap.Logger
}

// NewService wires the query engine. timeout bounds each store round-trip.
func NewService(store Store, timeout time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, timeout: timeout, log: log.Named("wifi")}
}

type ListParams struct {
	Page         int
	PageSize     int
	Neighborhood string
	District     string
}

type NearParams struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	Page         int
	PageSize     int
}

func (s *Service) roundTrip(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// fetchPage runs the count and the page fetch concurrently. Both round-trips
// are bounded by the service timeout; the first failure cancels the other.
func (s *Service) fetchPage(
	ctx context.Context,
	count func(context.Context) (int64, error),
	fetch func(context.Context) ([]AccessPoint, error),
) (int64, []AccessPoint, error) {
	var (
		total int64
		items []AccessPoint
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, cancel := s.roundTrip(gctx)
		defer cancel()
		n, err := count(c)
		total = n
		return err
	})
	g.Go(func() error {
		c, cancel := s.roundTrip(gctx)
		defer cancel()
		out, err := fetch(c)
		items = out
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// List returns one page of access points ordered by id, optionally filtered
// by neighborhood and/or district.
func (s *Service) List(ctx context.Context, p ListParams) (*Page[AccessPoint], error) {
	w, err := NewWindow(p.Page, p.PageSize)
	if err != nil {
		return nil, err
	}
	f := Filter{
		Neighborhood: strings.TrimSpace(p.Neighborhood),
		District:     strings.TrimSpace(p.District),
	}

	total, items, err := s.fetchPage(ctx,
		func(c context.Context) (int64, error) { return s.store.Count(c, f) },
		func(c context.Context) ([]AccessPoint, error) { return s.store.List(c, f, w) },
	)
	if err != nil {
		s.log.Error("list access points failed", zap.Error(err), zap.Bool("retryable", IsRetryable(err)))
		return nil, err
	}
	return newPage(items, total, p.Page, p.PageSize)
}

// Get returns the access point with the given id, or (nil, nil) when absent.
func (s *Service) Get(ctx context.Context, id string) (*AccessPoint, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &ValidationError{Field: "id", Reason: "must not be empty"}
	}

	c, cancel := s.roundTrip(ctx)
	defer cancel()

	ap, err := s.store.Get(c, id)
	if err != nil {
		s.log.Error("get access point failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return ap, nil
}

// ValidateNear checks coordinates and radius before anything touches the store.
func ValidateNear(p NearParams) error {
	if err := geo.ValidateLatitude(p.Latitude); err != nil {
		return &ValidationError{Field: "latitude", Reason: err.Error()}
	}
	if err := geo.ValidateLongitude(p.Longitude); err != nil {
		return &ValidationError{Field: "longitude", Reason: err.Error()}
	}
	if math.IsNaN(p.RadiusMeters) || p.RadiusMeters <= 0 {
		return &ValidationError{Field: "radius", Reason: "must be > 0"}
	}
	if p.RadiusMeters > MaxRadiusMeters {
		return &ValidationError{Field: "radius", Reason: fmt.Sprintf("must be <= %.0f meters", MaxRadiusMeters)}
	}
	return nil
}

// Near returns access points within RadiusMeters of (Latitude, Longitude),
// nearest first. Total is the full within-radius count, independent of the page.
func (s *Service) Near(ctx context.Context, p NearParams) (*Page[AccessPoint], error) {
	if err := ValidateNear(p); err != nil {
		return nil, err
	}
	w, err := NewWindow(p.Page, p.PageSize)
	if err != nil {
		return nil, err
	}
	center := geo.NewPoint(p.Latitude, p.Longitude)

	total, items, err := s.fetchPage(ctx,
		func(c context.Context) (int64, error) { return s.store.CountWithin(c, center, p.RadiusMeters) },
		func(c context.Context) ([]AccessPoint, error) {
			return s.store.FindWithin(c, center, p.RadiusMeters, w)
		},
	)
	if err != nil {
		s.log.Error("proximity search failed",
			zap.Float64("lat", p.Latitude),
			zap.Float64("lon", p.Longitude),
			zap.Float64("radius", p.RadiusMeters),
			zap.Error(err))
		return nil, err
	}
	return newPage(items, total, p.Page, p.PageSize)
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	c, cancel := s.roundTrip(ctx)
	defer cancel()
	return s.store.Ping(c)
}
