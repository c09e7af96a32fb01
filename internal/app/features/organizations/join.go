// internal/app/features/organizations/join.go
package organizations

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/soar/internal/app/features/errors"
	"github.com/dalemusser/soar/internal/app/policy/orgpolicy"
	membershipstore "github.com/dalemusser/soar/internal/app/store/memberships"
	"github.com/dalemusser/soar/internal/app/system/timeouts"
	"github.com/dalemusser/soar/internal/domain/models"
	"go.uber.org/zap"
)

// HandleJoin handles POST /organizations/{id}/join. It records a pending
// Member request; an officer approves it from the member page.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	a, ok := h.loadOrFail(ctx, w, r)
	if !ok {
		return
	}
	back := "/organizations/" + a.Org.ID.Hex()

	switch err := orgpolicy.CanJoin(a.Viewer, a.Org, a.Membership); {
	case errors.Is(err, orgpolicy.ErrPending):
		http.Redirect(w, r, back+"?notice=pending", http.StatusSeeOther)
		return
	case errors.Is(err, orgpolicy.ErrAlreadyMember):
		http.Redirect(w, r, back+"?notice=member", http.StatusSeeOther)
		return
	case err != nil:
		uierrors.RenderForbidden(w, r, "This organization is only open to students in its programs.", "/organizations")
		return
	}

	m, err := h.Memberships.Add(ctx, a.Org.ID, a.Viewer.UserID, models.RoleMember, false)
	if errors.Is(err, membershipstore.ErrDuplicateMembership) {
		// Lost a race with another request from the same user.
		http.Redirect(w, r, back+"?notice=pending", http.StatusSeeOther)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "organization join", err, "A database error occurred.", back)
		return
	}

	h.Log.Info("join requested",
		zap.String("org_id", a.Org.ID.Hex()),
		zap.String("user_id", a.Viewer.UserID),
		zap.String("membership_id", m.ID.Hex()))
	h.AuditLog.MemberJoinRequested(ctx, r, a.Viewer.UserID, a.Org.ID)
	http.Redirect(w, r, back+"?notice=requested", http.StatusSeeOther)
}
