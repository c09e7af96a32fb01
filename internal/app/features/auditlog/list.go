// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	uierrors "github.com/dalemusser/soar/internal/app/features/errors"
	"github.com/dalemusser/soar/internal/app/store/audit"
	"github.com/dalemusser/soar/internal/app/system/paging"
	"github.com/dalemusser/soar/internal/app/system/timeouts"
	"github.com/dalemusser/soar/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

var (
	errBadCategory  = errors.New("unknown category")
	errBadEventType = errors.New("unknown event type")
	errBadOrg       = errors.New("invalid organization id")
)

// filterInput is the parsed query string of GET /audit.
type filterInput struct {
	Category  string
	EventType string
	OrgID     string
	StartDate string
	EndDate   string
	Page      int
}

func parseFilter(r *http.Request) filterInput {
	return filterInput{
		Category:  query.Get(r, "category"),
		EventType: query.Get(r, "event_type"),
		OrgID:     query.Get(r, "org"),
		StartDate: query.Get(r, "start_date"),
		EndDate:   query.Get(r, "end_date"),
		Page:      paging.ParsePage(r),
	}
}

// storeFilter validates in and converts it. Unparseable dates are ignored.
func (in filterInput) storeFilter() (audit.QueryFilter, error) {
	var f audit.QueryFilter

	if in.Category != "" && eventTypesForCategory(in.Category) == nil {
		return f, errBadCategory
	}
	f.Category = in.Category

	if in.EventType != "" && !slices.Contains(eventTypesForCategory(in.Category), in.EventType) {
		return f, errBadEventType
	}
	f.EventType = in.EventType

	if in.OrgID != "" {
		oid, err := primitive.ObjectIDFromHex(in.OrgID)
		if err != nil {
			return f, errBadOrg
		}
		f.OrganizationID = &oid
	}

	if t, err := time.Parse(dateLayout, in.StartDate); err == nil {
		f.Since = &t
	}
	if t, err := time.Parse(dateLayout, in.EndDate); err == nil {
		end := t.AddDate(0, 0, 1) // whole end day
		f.Until = &end
	}
	return f, nil
}

// ServeList handles GET /audit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	in := parseFilter(r)
	f, err := in.storeFilter()
	if err != nil {
		uierrors.RenderBadRequest(w, r, "Invalid filter: "+err.Error()+".", "/audit")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data, err := h.load(ctx, in, f)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "audit log list", err, "A database error occurred.", "/dashboard")
		return
	}
	data.BaseVM = viewdata.NewBaseVM(r, "Audit Log", "/dashboard")
	templates.Render(w, r, "audit_list", data)
}

// load runs the count and page queries and resolves user and org names.
func (h *Handler) load(ctx context.Context, in filterInput, f audit.QueryFilter) (listData, error) {
	total, err := h.Events.Count(ctx, f)
	if err != nil {
		return listData{}, err
	}
	page := paging.New(in.Page, paging.PageSize, total)
	f.Offset, f.Limit = page.Offset(), page.Limit()

	events, err := h.Events.Query(ctx, f)
	if err != nil {
		return listData{}, err
	}

	userNames, orgNames := h.names(ctx, events)

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		item := listItem{
			ID:         e.ID.Hex(),
			Timestamp:  e.Timestamp,
			Category:   e.Category,
			EventType:  e.EventType,
			ActorName:  nameOr(userNames, e.ActorID),
			TargetName: nameOr(userNames, e.UserID),
			IP:         e.IP,
			Success:    e.Success,
			Reason:     e.FailureReason,
			Details:    e.Details,
		}
		if e.OrganizationID != nil {
			item.OrgID = e.OrganizationID.Hex()
			item.OrgName = nameOr(orgNames, item.OrgID)
		}
		items = append(items, item)
	}

	data := listData{
		Items:      items,
		Category:   in.Category,
		EventType:  in.EventType,
		OrgID:      in.OrgID,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		Categories: allCategories(),
		EventTypes: eventTypesForCategory(in.Category),
		Page:       page,
		Range:      page.Shown(len(items)),
	}
	if in.OrgID != "" {
		data.OrgName = nameOr(orgNames, in.OrgID)
	}
	if page.HasPrev() {
		data.PrevURL = in.pageURL(page.Prev())
	}
	if page.HasNext() {
		data.NextURL = in.pageURL(page.Next())
	}
	return data, nil
}

// pageURL links to page n with the same filters.
func (in filterInput) pageURL(n int) string {
	v := url.Values{}
	for k, val := range map[string]string{
		"category":   in.Category,
		"event_type": in.EventType,
		"org":        in.OrgID,
		"start_date": in.StartDate,
		"end_date":   in.EndDate,
	} {
		if val != "" {
			v.Set(k, val)
		}
	}
	v.Set("page", strconv.Itoa(n))
	return "/audit?" + v.Encode()
}

// names batch-resolves user display names and organization names. Lookup
// failures only cost readability, so they are logged and the raw ids shown.
func (h *Handler) names(ctx context.Context, events []audit.Event) (users, orgs map[string]string) {
	users, orgs = map[string]string{}, map[string]string{}

	var userIDs []string
	var orgIDs []primitive.ObjectID
	seenOrg := map[primitive.ObjectID]bool{}
	for _, e := range events {
		for _, id := range []string{e.ActorID, e.UserID} {
			if id != "" && !slices.Contains(userIDs, id) {
				userIDs = append(userIDs, id)
			}
		}
		if e.OrganizationID != nil && !seenOrg[*e.OrganizationID] {
			seenOrg[*e.OrganizationID] = true
			orgIDs = append(orgIDs, *e.OrganizationID)
		}
	}

	if len(userIDs) > 0 {
		found, err := h.Users.GetByIDs(ctx, userIDs)
		if err != nil {
			h.Log.Warn("audit log: resolve user names", zap.Error(err))
		}
		for id, u := range found {
			users[id] = u.DisplayName()
		}
	}
	if len(orgIDs) > 0 {
		found, err := h.Orgs.GetByIDs(ctx, orgIDs)
		if err != nil {
			h.Log.Warn("audit log: resolve organization names", zap.Error(err))
		}
		for _, o := range found {
			orgs[o.ID.Hex()] = o.Name
		}
	}
	return users, orgs
}

func nameOr(names map[string]string, id string) string {
	if id == "" {
		return ""
	}
	if n, ok := names[id]; ok && strings.TrimSpace(n) != "" {
		return n
	}
	return id
}
