package auditlog

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	uierrors "github.com/dalemusser/soar/internal/app/features/errors"
	"github.com/dalemusser/soar/internal/app/store/audit"
	"github.com/dalemusser/soar/internal/testutil"
	"go.uber.org/zap"
)

func TestStoreFilter(t *testing.T) {
	tests := []struct {
		name    string
		in      filterInput
		wantErr error
	}{
		{"empty", filterInput{}, nil},
		{"category only", filterInput{Category: audit.CategoryAuth}, nil},
		{"event matches category", filterInput{Category: audit.CategoryAdmin, EventType: audit.EventMemberPromoted}, nil},
		{"event without category", filterInput{EventType: audit.EventLogout}, nil},
		{"unknown category", filterInput{Category: "security"}, errBadCategory},
		{"event outside category", filterInput{Category: audit.CategoryAuth, EventType: audit.EventMemberPromoted}, errBadEventType},
		{"bad org id", filterInput{OrgID: "not-hex"}, errBadOrg},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.storeFilter()
			if err != tt.wantErr {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStoreFilter_Dates(t *testing.T) {
	f, err := filterInput{StartDate: "2026-02-01", EndDate: "2026-02-03"}.storeFilter()
	if err != nil {
		t.Fatalf("storeFilter: %v", err)
	}
	if f.Since == nil || !f.Since.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Since = %v", f.Since)
	}
	if f.Until == nil || !f.Until.Equal(time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Until = %v, want start of the day after end_date", f.Until)
	}

	f, _ = filterInput{StartDate: "yesterday"}.storeFilter()
	if f.Since != nil {
		t.Error("unparseable date should be ignored")
	}
}

func TestPageURL_KeepsFilters(t *testing.T) {
	u := filterInput{Category: audit.CategoryAdmin, OrgID: "abc"}.pageURL(3)
	for _, want := range []string{"/audit?", "category=admin", "org=abc", "page=3"} {
		if !strings.Contains(u, want) {
			t.Errorf("pageURL = %q, missing %q", u, want)
		}
	}
	if strings.Contains(u, "start_date") {
		t.Errorf("empty filters should be omitted: %q", u)
	}
}

func TestLoad_ResolvesNamesAndPages(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	leader := fx.CreateUser(ctx, "leader@school.edu", "BSCS")
	member := fx.CreateUser(ctx, "member@school.edu", "BSCS")
	org := fx.CreateOrganization(ctx, "Chess Club", true)

	h := NewHandler(db, uierrors.NewErrorLogger(zap.NewNop()), zap.NewNop())

	base := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ev := audit.Event{
			Timestamp:      base.Add(time.Duration(i) * time.Minute),
			Category:       audit.CategoryAdmin,
			EventType:      audit.EventMemberPromoted,
			OrganizationID: &org.ID,
			ActorID:        leader.ID,
			UserID:         member.ID,
			Success:        true,
		}
		if err := h.Events.Log(ctx, ev); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}
	if err := h.Events.Log(ctx, audit.Event{Timestamp: base, Category: audit.CategoryAuth, EventType: audit.EventLoginFailed, UserID: "gone-user"}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	in := filterInput{OrgID: org.ID.Hex(), Page: 1}
	f, err := in.storeFilter()
	if err != nil {
		t.Fatalf("storeFilter: %v", err)
	}
	data, err := h.load(ctx, in, f)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if data.Page.Total != 3 || len(data.Items) != 3 {
		t.Fatalf("total=%d items=%d, want 3/3", data.Page.Total, len(data.Items))
	}
	first := data.Items[0]
	if first.ActorName != leader.DisplayName() || first.TargetName != member.DisplayName() || first.OrgName != "Chess Club" {
		t.Errorf("names not resolved: %+v", first)
	}
	if !first.Timestamp.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("expected newest first, got %v", first.Timestamp)
	}
	if data.OrgName != "Chess Club" || data.PrevURL != "" || data.NextURL != "" {
		t.Errorf("unexpected page data: org=%q prev=%q next=%q", data.OrgName, data.PrevURL, data.NextURL)
	}

	all, err := h.load(ctx, filterInput{Category: audit.CategoryAuth, Page: 1}, audit.QueryFilter{Category: audit.CategoryAuth})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(all.Items) != 1 || all.Items[0].TargetName != "gone-user" {
		t.Errorf("unknown user should fall back to the raw id: %+v", all.Items)
	}
}

func TestServeList_BadFilter(t *testing.T) {
	h := &Handler{Log: zap.NewNop()}
	rec := httptest.NewRecorder()
	testutil.ServeIgnoringRender(h.ServeList, rec, httptest.NewRequest(http.MethodGet, "/audit?category=security", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
