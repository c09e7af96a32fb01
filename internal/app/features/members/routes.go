// internal/app/features/members/routes.go
package members

import (
	"github.com/dalemusser/soar/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the member management page. The caller mounts it under a
// path carrying the organization id, e.g. "/organizations/{id}/members".
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeManage)
	})

	return r
}

// APIRoutes mounts the JSON member actions, e.g. at "/api/members".
// Promote and demote take no body; the actor is the signed-in user.
func APIRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/{id}/promote", h.HandlePromote)
		pr.Post("/{id}/demote", h.HandleDemote)
		pr.Post("/{id}/approve", h.HandleApprove)
		pr.Delete("/{id}", h.HandleRemove)
	})

	return r
}
