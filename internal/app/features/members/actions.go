// internal/app/features/members/actions.go
package members

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/soar/internal/app/features/errors"
	"github.com/dalemusser/soar/internal/app/policy/orgpolicy"
	"github.com/dalemusser/soar/internal/app/system/authz"
	"github.com/dalemusser/soar/internal/app/system/roles"
	"github.com/dalemusser/soar/internal/app/system/timeouts"
	"github.com/dalemusser/soar/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// loadMember reads the {id} membership, writing the JSON error itself when it
// cannot. The second result is false when the caller should stop.
func (h *Handler) loadMember(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.OrganizationMember, bool) {
	if authz.UserID(r) == "" {
		uierrors.WriteJSONError(w, http.StatusUnauthorized, "Sign in required.")
		return nil, false
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.WriteJSONError(w, http.StatusBadRequest, "Invalid member ID.")
		return nil, false
	}
	m, err := h.Memberships.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.WriteJSONError(w, http.StatusNotFound, "Member not found.")
		return nil, false
	}
	if err != nil {
		h.ErrLog.JSONServerError(w, r, "members: load membership", err, "A database error occurred.")
		return nil, false
	}
	return m, true
}

func actorFrom(r *http.Request) roles.Actor {
	id, _, staff, _ := authz.UserCtx(r)
	return roles.Actor{UserID: id, IsStaff: staff}
}

// writeEngineError maps a roles.Engine error to its JSON response.
func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, action string, err error) {
	switch {
	case errors.Is(err, roles.ErrForbidden):
		uierrors.WriteJSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrNoHigherRole), errors.Is(err, models.ErrNoLowerRole):
		uierrors.WriteJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, roles.ErrConflict):
		uierrors.WriteJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, mongo.ErrNoDocuments):
		uierrors.WriteJSONError(w, http.StatusNotFound, "Member not found.")
	default:
		h.ErrLog.JSONServerError(w, r, "members: "+action, err, "A database error occurred.")
	}
}

// HandlePromote handles POST /api/members/{id}/promote.
func (h *Handler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, roles.ActionPromote)
}

// HandleDemote handles POST /api/members/{id}/demote.
func (h *Handler) HandleDemote(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, roles.ActionDemote)
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request, action string) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, ok := h.loadMember(ctx, w, r)
	if !ok {
		return
	}

	actor := actorFrom(r)
	if err := h.Roles.Authorize(ctx, *m, actor); err != nil {
		h.writeEngineError(w, r, action, err)
		return
	}
	if !m.IsApproved {
		uierrors.WriteJSONError(w, http.StatusBadRequest, "Approve this member before changing their role.")
		return
	}

	from := m.Role
	var (
		to     models.Role
		err    error
		status string
	)
	if action == roles.ActionPromote {
		to, err = h.Roles.Promote(ctx, m, actor)
		status = "promoted"
	} else {
		to, err = h.Roles.Demote(ctx, m, actor)
		status = "demoted"
	}
	if err != nil {
		h.writeEngineError(w, r, action, err)
		return
	}

	h.AuditLog.RoleChanged(ctx, r, actor.UserID, m.UserID, m.OrgID, action == roles.ActionPromote, from.String(), to.String(), "")
	uierrors.WriteJSON(w, http.StatusOK, actionResponse{Status: status, NewRole: to.String()})
}

// HandleApprove handles POST /api/members/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, ok := h.loadMember(ctx, w, r)
	if !ok {
		return
	}
	org, err := h.Orgs.GetByID(ctx, m.OrgID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.WriteJSONError(w, http.StatusNotFound, "Organization not found.")
		return
	}
	if err != nil {
		h.ErrLog.JSONServerError(w, r, "members: load organization", err, "A database error occurred.")
		return
	}

	viewer := orgpolicy.ViewerFrom(r)
	own, err := h.Memberships.Find(ctx, m.OrgID, viewer.UserID)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		own = nil
	case err != nil:
		h.ErrLog.JSONServerError(w, r, "members: load own membership", err, "A database error occurred.")
		return
	}
	if !orgpolicy.CanManageMembers(viewer, org, own) {
		uierrors.WriteJSONError(w, http.StatusForbidden, "You do not have permission to approve members of this organization.")
		return
	}

	if m.IsApproved {
		uierrors.WriteJSON(w, http.StatusOK, actionResponse{Status: "approved"})
		return
	}
	if err := h.Memberships.Approve(ctx, m.ID); err != nil {
		h.writeEngineError(w, r, "approve", err)
		return
	}

	h.Log.Info("member approved",
		zap.String("membership_id", m.ID.Hex()),
		zap.String("org_id", m.OrgID.Hex()),
		zap.String("actor_id", viewer.UserID))
	h.AuditLog.MemberApproved(ctx, r, viewer.UserID, m.UserID, m.OrgID)
	uierrors.WriteJSON(w, http.StatusOK, actionResponse{Status: "approved"})
}

// HandleRemove handles DELETE /api/members/{id}. Members may remove
// themselves; removing anyone else needs the same authority as a role change.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, ok := h.loadMember(ctx, w, r)
	if !ok {
		return
	}
	actor := actorFrom(r)
	if err := h.Roles.AuthorizeRemoval(ctx, *m, actor); err != nil {
		h.writeEngineError(w, r, roles.ActionRemove, err)
		return
	}
	if err := h.Roles.Remove(ctx, *m); err != nil {
		h.writeEngineError(w, r, roles.ActionRemove, err)
		return
	}

	h.AuditLog.MemberRemoved(ctx, r, actor.UserID, m.UserID, m.OrgID, m.Role.String())
	uierrors.WriteJSON(w, http.StatusOK, actionResponse{Status: "removed"})
}
