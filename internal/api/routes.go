package api

import (
	"net/http"

	"github.com/EmpoweredVote/geobase/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// SetupRoutes mounts the lookup and range routes. Mutations require the
// admin bearer token.
func SetupRoutes(h *Handler, adminTokenHash string) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Get("/lookup/{ip}", h.Lookup)
	r.Get("/lookup/{ip}/best", h.Best)
	r.Get("/ranges", h.Intersections)
	r.Get("/ranges/{istart}/{iend}", h.GetRange)

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AdminToken(adminTokenHash))
		r.Post("/ranges", h.CreateRange)
		r.Patch("/ranges/{istart}/{iend}", h.UpdateRange)
		r.Delete("/ranges/{istart}/{iend}", h.DeleteRange)
	})

	return r
}
