package wifi

import (
	"context"
	"math"
	"net/http"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
)

const graphqlSchema = `
	scalar Time

	schema {
		query: Query
	}

	type Query {
		listPoints(page: Int = 1, pageSize: Int = 10, neighborhood: String, district: String): PointPage!
		getPoint(id: String!): AccessPoint
		pointsNear(latitude: Float!, longitude: Float!, radius: Float = 1000.0, page: Int = 1, pageSize: Int = 10): PointPage!
	}

	type AccessPoint {
		id: String!
		program: String!
		installationDate: Time!
		latitude: Float!
		longitude: Float!
		neighborhood: String!
		district: String!
	}

	type PointPage {
		items: [AccessPoint!]!
		total: Int!
		page: Int!
		pageSize: Int!
		totalPages: Int!
	}
`

// NewSchema parses the GraphQL schema against the query engine.
func NewSchema(svc *Service) *graphql.Schema {
	return graphql.MustParseSchema(graphqlSchema, &queryResolver{svc: svc})
}

// GraphQLHandler serves POST /graphql.
func GraphQLHandler(svc *Service) http.Handler {
	return &relay.Handler{Schema: NewSchema(svc)}
}

type queryResolver struct {
	svc *Service
}

func intArg(v *int32, def int) int {
	if v == nil {
		return def
	}
	return int(*v)
}

func strArg(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

type listPointsArgs struct {
	Page         *int32
	PageSize     *int32
	Neighborhood *string
	District     *string
}

func (q *queryResolver) ListPoints(ctx context.Context, args listPointsArgs) (*pageResolver, error) {
	p, err := q.svc.List(ctx, ListParams{
		Page:         intArg(args.Page, DefaultPage),
		PageSize:     intArg(args.PageSize, DefaultPageSize),
		Neighborhood: strArg(args.Neighborhood),
		District:     strArg(args.District),
	})
	if err != nil {
		return nil, err
	}
	return &pageResolver{p: p}, nil
}

func (q *queryResolver) GetPoint(ctx context.Context, args struct{ ID string }) (*pointResolver, error) {
	ap, err := q.svc.Get(ctx, args.ID)
	if err != nil || ap == nil {
		return nil, err
	}
	return &pointResolver{ap: *ap}, nil
}

type pointsNearArgs struct {
	Latitude  float64
	Longitude float64
	Radius    *float64
	Page      *int32
	PageSize  *int32
}

func (q *queryResolver) PointsNear(ctx context.Context, args pointsNearArgs) (*pageResolver, error) {
	radius := DefaultRadiusMeters
	if args.Radius != nil {
		radius = *args.Radius
	}
	p, err := q.svc.Near(ctx, NearParams{
		Latitude:     args.Latitude,
		Longitude:    args.Longitude,
		RadiusMeters: radius,
		Page:         intArg(args.Page, DefaultPage),
		PageSize:     intArg(args.PageSize, DefaultPageSize),
	})
	if err != nil {
		return nil, err
	}
	return &pageResolver{p: p}, nil
}

type pageResolver struct {
	p *Page[AccessPoint]
}

func (r *pageResolver) Items() []*pointResolver {
	out := make([]*pointResolver, len(r.p.Items))
	for i := range r.p.Items {
		out[i] = &pointResolver{ap: r.p.Items[i]}
	}
	return out
}

// GraphQL Int is 32-bit.
func (r *pageResolver) Total() int32 {
	if r.p.Total > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(r.p.Total)
}

func (r *pageResolver) Page() int32       { return int32(r.p.Page) }
func (r *pageResolver) PageSize() int32   { return int32(r.p.PageSize) }
func (r *pageResolver) TotalPages() int32 { return int32(r.p.TotalPages) }

type pointResolver struct {
	ap AccessPoint
}

func (r *pointResolver) ID() string           { return r.ap.ID }
func (r *pointResolver) Program() string      { return r.ap.Program }
func (r *pointResolver) Latitude() float64    { return r.ap.Latitude }
func (r *pointResolver) Longitude() float64   { return r.ap.Longitude }
func (r *pointResolver) Neighborhood() string { return r.ap.Neighborhood }
func (r *pointResolver) District() string     { return r.ap.District }

func (r *pointResolver) InstallationDate() graphql.Time {
	return graphql.Time{Time: r.ap.InstallationDate}
}
