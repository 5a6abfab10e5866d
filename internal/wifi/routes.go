package wifi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes(svc *Service) http.Handler {
	r := chi.NewRouter()
	h := NewHandlers(svc)

	r.Get("/points", h.ListPoints)
	// Registered before {id} so "near" is never read as an id.
	r.Get("/points/near", h.PointsNear)
	r.Get("/points/{id}", h.GetPoint)

	return r
}
