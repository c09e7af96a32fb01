// internal/app/features/organizations/api.go
package organizations

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	uierrors "github.com/dalemusser/soar/internal/app/features/errors"
	"github.com/dalemusser/soar/internal/app/policy/orgpolicy"
	"github.com/dalemusser/soar/internal/app/system/inputval"
	"github.com/dalemusser/soar/internal/app/system/metrics"
	"github.com/dalemusser/soar/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const maxUpdateBody = 64 << 10

// updateRequest is the JSON body of the organization update API. Absent
// fields keep their stored values.
type updateRequest struct {
	Name            *string      `json:"org_name"`
	About           *string      `json:"org_about"`
	IsPublic        *flexBool    `json:"is_public"`
	AllowedPrograms *programList `json:"allowed_programs"`
}

type updateResponse struct {
	Status          string  `json:"status"`
	ID              string  `json:"id"`
	Name            string  `json:"org_name"`
	IsPublic        bool    `json:"is_public"`
	AllowedPrograms []int64 `json:"allowed_programs"`
}

// HandleUpdateAPI handles POST /api/organizations/{id}.
func (h *Handler) HandleUpdateAPI(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "organization update api")
	defer cancel()

	if orgpolicy.ViewerFrom(r).UserID == "" {
		uierrors.WriteJSONError(w, http.StatusUnauthorized, "Sign in required.")
		return
	}

	a, err := h.load(ctx, r)
	switch {
	case err == nil:
	case errors.Is(err, errBadID):
		uierrors.WriteJSONError(w, http.StatusBadRequest, "Invalid organization ID.")
		return
	case errors.Is(err, mongo.ErrNoDocuments):
		uierrors.WriteJSONError(w, http.StatusNotFound, "Organization not found.")
		return
	default:
		h.ErrLog.JSONServerError(w, r, "load organization", err, "A database error occurred.")
		return
	}

	if !orgpolicy.CanEdit(a.Viewer, a.Org, a.Membership) {
		metrics.OrganizationUpdates.WithLabelValues("api", metrics.OutcomeForbidden).Inc()
		uierrors.WriteJSONError(w, http.StatusForbidden, "You do not have permission to edit this organization.")
		return
	}

	var req updateRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxUpdateBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		metrics.OrganizationUpdates.WithLabelValues("api", metrics.OutcomeRejected).Inc()
		h.Log.Debug("organization update: bad body", zap.Error(err))
		uierrors.WriteJSONError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	in := profileInput{
		Name:        a.Org.Name,
		Description: a.Org.Description,
		IsPublic:    a.Org.IsPublic,
		ProgramIDs:  a.Org.AllowedProgramIDs,
	}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.About != nil {
		in.Description = *req.About
	}
	if req.IsPublic != nil {
		in.IsPublic = bool(*req.IsPublic)
	}
	if req.AllowedPrograms != nil {
		in.ProgramIDs = []int64(*req.AllowedPrograms)
	}

	updated, err := h.applyProfile(ctx, a.Org, in)
	var res *inputval.Result
	switch {
	case err == nil:
	case errors.As(err, &res):
		metrics.OrganizationUpdates.WithLabelValues("api", metrics.OutcomeRejected).Inc()
		uierrors.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":  res.First(),
			"fields": res.ByField(),
		})
		return
	case errors.Is(err, errDuplicateName):
		metrics.OrganizationUpdates.WithLabelValues("api", metrics.OutcomeConflict).Inc()
		uierrors.WriteJSONError(w, http.StatusConflict, "Another organization already uses that name.")
		return
	case errors.Is(err, mongo.ErrNoDocuments):
		uierrors.WriteJSONError(w, http.StatusNotFound, "Organization not found.")
		return
	default:
		metrics.OrganizationUpdates.WithLabelValues("api", metrics.OutcomeError).Inc()
		h.ErrLog.JSONServerError(w, r, "update organization", err, "A database error occurred.")
		return
	}

	metrics.OrganizationUpdates.WithLabelValues("api", metrics.OutcomeSuccess).Inc()
	h.AuditLog.OrgUpdated(ctx, r, a.Viewer.UserID, updated.ID, changedFields(a.Org, updated))

	programs := updated.AllowedProgramIDs
	if programs == nil {
		programs = []int64{}
	}
	uierrors.WriteJSON(w, http.StatusOK, updateResponse{
		Status:          "updated",
		ID:              updated.ID.Hex(),
		Name:            updated.Name,
		IsPublic:        updated.IsPublic,
		AllowedPrograms: programs,
	})
}
