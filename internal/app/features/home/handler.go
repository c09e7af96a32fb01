package home

import (
	"context"
	"net/http"

	organizationstore "github.com/dalemusser/soar/internal/app/store/organizations"
	"github.com/dalemusser/soar/internal/app/system/auth"
	"github.com/dalemusser/soar/internal/app/system/timeouts"
	"github.com/dalemusser/soar/internal/app/system/viewdata"
	"github.com/dalemusser/soar/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler holds dependencies needed to serve the landing page.
type Handler struct {
	Orgs *organizationstore.Store
	Log  *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Orgs: organizationstore.New(db),
		Log:  logger,
	}
}

type homeData struct {
	viewdata.BaseVM
	PublicOrgs []models.Organization
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – landing                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	// The landing page still renders if the listing fails.
	orgs, err := h.Orgs.ListVisible(ctx, nil, nil)
	if err != nil {
		h.Log.Warn("landing: list public organizations", zap.Error(err))
	}

	templates.Render(w, r, "home", homeData{
		BaseVM:     viewdata.NewBaseVM(r, "Welcome", "/"),
		PublicOrgs: orgs,
	})
}
