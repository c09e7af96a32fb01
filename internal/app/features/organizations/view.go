// internal/app/features/organizations/view.go
package organizations

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/soar/internal/app/features/errors"
	"github.com/dalemusser/soar/internal/app/policy/orgpolicy"
	"github.com/dalemusser/soar/internal/app/system/htmlsanitize"
	"github.com/dalemusser/soar/internal/app/system/timeouts"
	"github.com/dalemusser/soar/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
)

var notices = map[string]string{
	"updated":   "Organization updated.",
	"requested": "Your request to join has been sent. An officer will review it.",
	"pending":   "Your request to join is still awaiting approval.",
	"member":    "You are already a member of this organization.",
}

// ServeView handles GET /organizations/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	a, ok := h.loadOrFail(ctx, w, r)
	if !ok {
		return
	}
	if !orgpolicy.CanView(a.Viewer, a.Org, a.Membership) {
		uierrors.RenderForbidden(w, r, "This organization is private.", "/organizations")
		return
	}

	counts, err := h.Memberships.CountByRole(ctx, a.Org.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "organization view: count members", err, "A database error occurred.", "/organizations")
		return
	}
	programs, err := h.Programs.GetByIDs(ctx, a.Org.AllowedProgramIDs)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "organization view: load programs", err, "A database error occurred.", "/organizations")
		return
	}

	data := viewData{
		BaseVM:      viewdata.NewBaseVM(r, a.Org.Name, "/organizations"),
		Org:         a.Org,
		Description: htmlsanitize.PrepareForDisplay(a.Org.Description),
		Programs:    programs,
		Counts: countsView{
			Members:  counts.Members,
			Officers: counts.Officers,
			Leaders:  counts.Leaders,
			Pending:  counts.Pending,
			Total:    counts.Total(),
		},
		CanEdit:   orgpolicy.CanEdit(a.Viewer, a.Org, a.Membership),
		CanManage: orgpolicy.CanManageMembers(a.Viewer, a.Org, a.Membership),
		CanJoin:   orgpolicy.CanJoin(a.Viewer, a.Org, a.Membership) == nil,
		Notice:    notices[query.Get(r, "notice")],
	}
	if a.Membership != nil {
		data.MyRole = a.Membership.Role.Label()
		data.IsPending = !a.Membership.IsApproved
	}

	if a.Org.AdviserID != nil {
		users, err := h.Users.GetByIDs(ctx, []string{*a.Org.AdviserID})
		if err != nil {
			h.ErrLog.LogServerError(w, r, "organization view: load adviser", err, "A database error occurred.", "/organizations")
			return
		}
		if u, ok := users[*a.Org.AdviserID]; ok {
			data.AdviserName = u.DisplayName()
		}
	}

	templates.Render(w, r, "organization_view", data)
}
