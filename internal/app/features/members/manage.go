// internal/app/features/members/manage.go
package members

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	uierrors "github.com/dalemusser/soar/internal/app/features/errors"
	"github.com/dalemusser/soar/internal/app/policy/orgpolicy"
	"github.com/dalemusser/soar/internal/app/system/roles"
	"github.com/dalemusser/soar/internal/app/system/timeouts"
	"github.com/dalemusser/soar/internal/app/system/viewdata"
	"github.com/dalemusser/soar/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ServeManage handles GET /organizations/{id}/members. The optional q narrows
// the list by username, name or student id. Pending requests come first.
func (h *Handler) ServeManage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	orgID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.RenderBadRequest(w, r, "Invalid organization ID.", "/organizations")
		return
	}
	org, err := h.Orgs.GetByID(ctx, orgID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.RenderNotFound(w, r, "Organization not found.", "/organizations")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "members: load organization", err, "A database error occurred.", "/organizations")
		return
	}

	viewer := orgpolicy.ViewerFrom(r)
	own, err := h.Memberships.Find(ctx, orgID, viewer.UserID)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		own = nil
	case err != nil:
		h.ErrLog.LogServerError(w, r, "members: load own membership", err, "A database error occurred.", "/organizations")
		return
	}
	back := "/organizations/" + org.ID.Hex()
	if !orgpolicy.CanManageMembers(viewer, org, own) {
		uierrors.RenderForbidden(w, r, "You do not have permission to manage this organization's members.", back)
		return
	}

	actor := roles.Actor{UserID: viewer.UserID, IsStaff: viewer.IsStaff}
	canChange := true
	if err := h.Roles.Authorize(ctx, models.OrganizationMember{OrgID: orgID}, actor); err != nil {
		if !errors.Is(err, roles.ErrForbidden) {
			h.ErrLog.LogServerError(w, r, "members: authorize", err, "A database error occurred.", back)
			return
		}
		canChange = false
	}

	q := strings.TrimSpace(query.Get(r, "q"))
	rows, err := h.rows(ctx, orgID, q, viewer.UserID, canChange)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "members: list", err, "A database error occurred.", back)
		return
	}

	data := manageData{
		BaseVM:         viewdata.NewBaseVM(r, "Members of "+org.Name, back),
		OrgID:          org.ID.Hex(),
		OrgName:        org.Name,
		Query:          q,
		Total:          len(rows),
		CanApprove:     true,
		CanChangeRoles: canChange,
	}
	for _, row := range rows {
		if row.IsPending {
			data.Pending = append(data.Pending, row)
		} else {
			data.Active = append(data.Active, row)
		}
	}

	h.Log.Debug("members listed",
		zap.String("org_id", org.ID.Hex()),
		zap.String("q", q),
		zap.Int("rows", len(rows)))
	templates.Render(w, r, "members_manage", data)
}

// rows loads the organization's memberships with their users, filtered by q
// and sorted pending first, then by descending role, then by name.
func (h *Handler) rows(ctx context.Context, orgID primitive.ObjectID, q, viewerID string, canChange bool) ([]memberRow, error) {
	ms, err := h.Memberships.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return nil, nil
	}

	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.UserID
	}
	if q != "" {
		matched, err := h.Users.MatchIDs(ctx, ids, q)
		if err != nil {
			return nil, err
		}
		if len(matched) == 0 {
			return nil, nil
		}
		ms, err = h.Memberships.ListByOrgUsers(ctx, orgID, matched)
		if err != nil {
			return nil, err
		}
		ids = matched
	}
	users, err := h.Users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if a.IsApproved != b.IsApproved {
			return !a.IsApproved
		}
		if a.Role != b.Role {
			return a.Role > b.Role
		}
		return strings.ToLower(users[a.UserID].DisplayName()) < strings.ToLower(users[b.UserID].DisplayName())
	})

	rows := make([]memberRow, 0, len(ms))
	for _, m := range ms {
		u := users[m.UserID]
		row := memberRow{
			ID:        m.ID.Hex(),
			Username:  u.Username,
			Name:      u.DisplayName(),
			StudentID: u.StudentIDValue(),
			Course:    u.Course,
			Role:      m.Role.String(),
			RoleLabel: m.Role.Label(),
			IsPending: !m.IsApproved,
			IsSelf:    m.UserID == viewerID,
		}
		if canChange && m.IsApproved {
			row.CanPromote = m.Role != models.RoleLeader
			row.CanDemote = m.Role != models.RoleMember
		}
		row.CanRemove = canChange || row.IsSelf
		rows = append(rows, row)
	}
	return rows, nil
}
