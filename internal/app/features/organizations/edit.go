// internal/app/features/organizations/edit.go
package organizations

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	uierrors "github.com/dalemusser/soar/internal/app/features/errors"
	"github.com/dalemusser/soar/internal/app/policy/orgpolicy"
	"github.com/dalemusser/soar/internal/app/system/formutil"
	"github.com/dalemusser/soar/internal/app/system/inputval"
	"github.com/dalemusser/soar/internal/app/system/metrics"
	"github.com/dalemusser/soar/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/mongo"
)

// ServeEdit handles GET /organizations/{id}/edit.
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	a, ok := h.loadOrFail(ctx, w, r)
	if !ok {
		return
	}
	if !orgpolicy.CanEdit(a.Viewer, a.Org, a.Membership) {
		uierrors.RenderForbidden(w, r, "You do not have permission to edit this organization.", "/organizations/"+a.Org.ID.Hex())
		return
	}

	in := profileInput{
		Name:        a.Org.Name,
		Description: a.Org.Description,
		IsPublic:    a.Org.IsPublic,
		ProgramIDs:  a.Org.AllowedProgramIDs,
	}
	h.renderEdit(ctx, w, r, a, in, nil)
}

// HandleEdit handles POST /organizations/{id}/edit.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	a, ok := h.loadOrFail(ctx, w, r)
	if !ok {
		return
	}
	if !orgpolicy.CanEdit(a.Viewer, a.Org, a.Membership) {
		metrics.OrganizationUpdates.WithLabelValues("form", metrics.OutcomeForbidden).Inc()
		uierrors.RenderForbidden(w, r, "You do not have permission to edit this organization.", "/organizations/"+a.Org.ID.Hex())
		return
	}

	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "organization edit: parse form", err, "Invalid form submission.", "/organizations/"+a.Org.ID.Hex())
		return
	}

	in := profileInput{
		Name:        strings.TrimSpace(r.PostFormValue("org_name")),
		Description: r.PostFormValue("org_about"),
		IsPublic:    r.PostFormValue("is_public") != "",
	}
	res := &inputval.Result{}
	for _, raw := range r.PostForm["allowed_programs"] {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			res.Add("allowed_programs", "Program ids must be whole numbers.")
			break
		}
		in.ProgramIDs = append(in.ProgramIDs, id)
	}
	if res.HasErrors() {
		w.WriteHeader(http.StatusBadRequest)
		h.renderEdit(ctx, w, r, a, in, res)
		return
	}

	updated, err := h.applyProfile(ctx, a.Org, in)
	switch {
	case err == nil:
	case errors.As(err, &res):
		metrics.OrganizationUpdates.WithLabelValues("form", metrics.OutcomeRejected).Inc()
		w.WriteHeader(http.StatusBadRequest)
		h.renderEdit(ctx, w, r, a, in, res)
		return
	case errors.Is(err, errDuplicateName):
		metrics.OrganizationUpdates.WithLabelValues("form", metrics.OutcomeConflict).Inc()
		res = &inputval.Result{}
		res.Add("org_name", "Another organization already uses that name.")
		w.WriteHeader(http.StatusConflict)
		h.renderEdit(ctx, w, r, a, in, res)
		return
	case errors.Is(err, mongo.ErrNoDocuments):
		uierrors.RenderNotFound(w, r, "Organization not found.", "/organizations")
		return
	default:
		metrics.OrganizationUpdates.WithLabelValues("form", metrics.OutcomeError).Inc()
		h.ErrLog.LogServerError(w, r, "organization edit: update", err, "A database error occurred.", "/organizations/"+a.Org.ID.Hex())
		return
	}

	metrics.OrganizationUpdates.WithLabelValues("form", metrics.OutcomeSuccess).Inc()
	h.AuditLog.OrgUpdated(ctx, r, a.Viewer.UserID, updated.ID, changedFields(a.Org, updated))
	http.Redirect(w, r, "/organizations/"+updated.ID.Hex()+"?notice=updated", http.StatusSeeOther)
}

func (h *Handler) renderEdit(ctx context.Context, w http.ResponseWriter, r *http.Request, a orgAccess, in profileInput, res *inputval.Result) {
	all, err := h.Programs.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "organization edit: list programs", err, "A database error occurred.", "/organizations/"+a.Org.ID.Hex())
		return
	}
	selected := make(map[int64]bool, len(in.ProgramIDs))
	for _, id := range in.ProgramIDs {
		selected[id] = true
	}
	opts := make([]programOption, 0, len(all))
	for _, p := range all {
		opts = append(opts, programOption{ID: p.ID, Label: p.Code + " · " + p.Name, Selected: selected[p.ID]})
	}

	data := editData{
		OrgID:       a.Org.ID.Hex(),
		Name:        in.Name,
		Description: in.Description,
		IsPublic:    in.IsPublic,
		Programs:    opts,
	}
	formutil.SetBase(&data.Base, r, "Edit "+a.Org.Name, "/organizations/"+a.Org.ID.Hex())
	data.SetResult(res)
	templates.Render(w, r, "organization_edit", data)
}
