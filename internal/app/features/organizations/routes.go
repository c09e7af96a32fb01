// internal/app/features/organizations/routes.go
package organizations

import (
	"github.com/dalemusser/soar/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the organization pages (e.g., at "/organizations").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeList)
		pr.Get("/{id}", h.ServeView)
		pr.Get("/{id}/edit", h.ServeEdit)
		pr.Post("/{id}/edit", h.HandleEdit)
		pr.Post("/{id}/join", h.HandleJoin)
	})

	return r
}

// APIRoutes mounts the JSON update endpoint (e.g., at "/api/organizations").
func APIRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/{id}", h.HandleUpdateAPI)
	})

	return r
}
