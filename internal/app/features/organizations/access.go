// internal/app/features/organizations/access.go
package organizations

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	uierrors "github.com/dalemusser/soar/internal/app/features/errors"
	"github.com/dalemusser/soar/internal/app/policy/orgpolicy"
	"github.com/dalemusser/soar/internal/app/system/authz"
	"github.com/dalemusser/soar/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var errBadID = errors.New("invalid organization id")

// orgAccess is an organization together with the viewer's standing in it.
type orgAccess struct {
	Org        models.Organization
	Viewer     orgpolicy.Viewer
	Membership *models.OrganizationMember // nil when the viewer has none
}

// viewer resolves the signed-in user and the programs their course matches.
func (h *Handler) viewer(ctx context.Context, r *http.Request) (orgpolicy.Viewer, error) {
	v := orgpolicy.ViewerFrom(r)
	if v.IsStaff {
		return v, nil
	}
	ids, err := h.Programs.MatchCourse(ctx, authz.UserCourse(r))
	if err != nil {
		return v, fmt.Errorf("match course: %w", err)
	}
	v.ProgramIDs = ids
	return v, nil
}

// load reads the {id} organization and the viewer's membership.
// Errors: errBadID, mongo.ErrNoDocuments, or a wrapped store error.
func (h *Handler) load(ctx context.Context, r *http.Request) (orgAccess, error) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return orgAccess{}, errBadID
	}
	org, err := h.Orgs.GetByID(ctx, oid)
	if err != nil {
		return orgAccess{}, err
	}
	v, err := h.viewer(ctx, r)
	if err != nil {
		return orgAccess{}, err
	}

	a := orgAccess{Org: org, Viewer: v}
	if v.UserID != "" {
		m, err := h.Memberships.Find(ctx, oid, v.UserID)
		switch {
		case err == nil:
			a.Membership = m
		case errors.Is(err, mongo.ErrNoDocuments):
		default:
			return orgAccess{}, fmt.Errorf("find membership: %w", err)
		}
	}
	return a, nil
}

// loadOrFail is load plus the HTML error page for each failure.
func (h *Handler) loadOrFail(ctx context.Context, w http.ResponseWriter, r *http.Request) (orgAccess, bool) {
	a, err := h.load(ctx, r)
	switch {
	case err == nil:
		return a, true
	case errors.Is(err, errBadID):
		uierrors.RenderBadRequest(w, r, "Invalid organization ID.", "/organizations")
	case errors.Is(err, mongo.ErrNoDocuments):
		uierrors.RenderNotFound(w, r, "Organization not found.", "/organizations")
	default:
		h.ErrLog.LogServerError(w, r, "load organization", err, "A database error occurred.", "/organizations")
	}
	return orgAccess{}, false
}
