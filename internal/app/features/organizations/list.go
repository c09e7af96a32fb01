// internal/app/features/organizations/list.go
package organizations

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/soar/internal/app/system/htmlsanitize"
	"github.com/dalemusser/soar/internal/app/system/timeouts"
	"github.com/dalemusser/soar/internal/app/system/viewdata"
	"github.com/dalemusser/soar/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const listExcerptLen = 160

// ServeList handles GET /organizations. Staff see every organization;
// everyone else sees public ones, private ones open to their program and the
// ones they belong to.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	v, err := h.viewer(ctx, r)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "organizations: resolve viewer", err, "A database error occurred.", "/dashboard")
		return
	}

	mine, err := h.Memberships.ListByUser(ctx, v.UserID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "organizations: list memberships", err, "A database error occurred.", "/dashboard")
		return
	}
	standing := make(map[primitive.ObjectID]bool, len(mine)) // org → approved
	memberOf := make([]primitive.ObjectID, 0, len(mine))
	for _, m := range mine {
		standing[m.OrgID] = m.IsApproved
		memberOf = append(memberOf, m.OrgID)
	}

	var orgs []models.Organization
	if v.IsStaff {
		orgs, err = h.Orgs.List(ctx)
	} else {
		orgs, err = h.Orgs.ListVisible(ctx, v.ProgramIDs, memberOf)
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "organizations: list", err, "A database error occurred.", "/dashboard")
		return
	}

	q := strings.TrimSpace(query.Get(r, "q"))
	folded := text.Fold(q)

	rows := make([]orgRow, 0, len(orgs))
	for _, o := range orgs {
		if folded != "" && !strings.Contains(text.Fold(o.Name), folded) {
			continue
		}
		approved, member := standing[o.ID]
		rows = append(rows, orgRow{
			ID:          o.ID.Hex(),
			Name:        o.Name,
			IsPublic:    o.IsPublic,
			IsMember:    member && approved,
			IsPending:   member && !approved,
			Description: excerpt(o.Description),
		})
	}

	h.Log.Debug("organizations listed", zap.String("user", v.UserID), zap.Int("shown", len(rows)))

	templates.Render(w, r, "organization_list", listData{
		BaseVM: viewdata.NewBaseVM(r, "Organizations", "/dashboard"),
		Query:  q,
		Rows:   rows,
	})
}

// excerpt reduces stored HTML to a short plain-text teaser.
func excerpt(desc string) string {
	plain := strings.Join(strings.Fields(htmlsanitize.PlainText(desc)), " ")
	runes := []rune(plain)
	if len(runes) <= listExcerptLen {
		return plain
	}
	return string(runes[:listExcerptLen]) + "…"
}
