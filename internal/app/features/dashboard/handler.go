// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/soar/internal/app/features/errors"
	membershipstore "github.com/dalemusser/soar/internal/app/store/memberships"
	organizationstore "github.com/dalemusser/soar/internal/app/store/organizations"
	"github.com/dalemusser/soar/internal/app/system/authz"
	"github.com/dalemusser/soar/internal/app/system/timeouts"
	"github.com/dalemusser/soar/internal/app/system/viewdata"
	"github.com/dalemusser/soar/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Orgs        *organizationstore.Store
	Memberships *membershipstore.Store
	Log         *zap.Logger
	ErrLog      *uierrors.ErrorLogger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Orgs:        organizationstore.New(db),
		Memberships: membershipstore.New(db),
		Log:         logger,
		ErrLog:      errLog,
	}
}

// membershipRow is one line of "My organizations".
type membershipRow struct {
	OrgID     string
	OrgName   string
	Role      string
	IsPending bool
	CanManage bool
}

type dashboardData struct {
	viewdata.BaseVM
	Memberships []membershipRow
	Pending     int
}

// ServeDashboard handles GET /dashboard: the signed-in user's memberships.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	userID, _, isStaff, ok := authz.UserCtx(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rows, pending, err := h.rows(ctx, userID, isStaff)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "dashboard: load memberships", err, "Unable to load your organizations.", "/")
		return
	}

	templates.Render(w, r, "dashboard", dashboardData{
		BaseVM:      viewdata.NewBaseVM(r, "Dashboard", "/"),
		Memberships: rows,
		Pending:     pending,
	})
}

func (h *Handler) rows(ctx context.Context, userID string, isStaff bool) ([]membershipRow, int, error) {
	ms, err := h.Memberships.ListByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if len(ms) == 0 {
		return nil, 0, nil
	}

	ids := make([]primitive.ObjectID, len(ms))
	for i, m := range ms {
		ids[i] = m.OrgID
	}
	orgs, err := h.Orgs.GetByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	byID := make(map[primitive.ObjectID]models.Organization, len(orgs))
	for _, o := range orgs {
		byID[o.ID] = o
	}

	rows := make([]membershipRow, 0, len(ms))
	pending := 0
	for _, m := range ms {
		org, ok := byID[m.OrgID]
		if !ok {
			// Organization deleted out from under the membership.
			continue
		}
		if !m.IsApproved {
			pending++
		}
		rows = append(rows, membershipRow{
			OrgID:     org.ID.Hex(),
			OrgName:   org.Name,
			Role:      m.Role.Label(),
			IsPending: !m.IsApproved,
			CanManage: isStaff || org.HasAdviser(userID) || (m.IsApproved && m.Role.AtLeast(models.RoleOfficer)),
		})
	}
	return rows, pending, nil
}
