package organizations_test

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"sort"
	"strconv"
	"testing"

	uierrors "github.com/dalemusser/soar/internal/app/features/errors"
	"github.com/dalemusser/soar/internal/app/features/organizations"
	membershipstore "github.com/dalemusser/soar/internal/app/store/memberships"
	organizationstore "github.com/dalemusser/soar/internal/app/store/organizations"
	"github.com/dalemusser/soar/internal/domain/models"
	"github.com/dalemusser/soar/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(t *testing.T) (*organizations.Handler, *testutil.Fixtures, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	// nil audit logger is a no-op.
	return organizations.NewHandler(db, uierrors.NewErrorLogger(logger), nil, logger), testutil.NewFixtures(t, db), db
}

func apiRequest(org models.Organization, u *models.User, body any) *http.Request {
	req := testutil.NewJSONRequest(http.MethodPost, "/api/organizations/"+org.ID.Hex(), body)
	req = testutil.WithChiURLParam(req, "id", org.ID.Hex())
	if u != nil {
		req = testutil.WithUser(req, *u)
	}
	return req
}

func loadOrg(t *testing.T, db *mongo.Database, id primitive.ObjectID) models.Organization {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org, err := organizationstore.New(db).GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return org
}

func sorted(ids []int64) []int64 {
	out := append([]int64{}, ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestUpdateAPI_PrivateWithExactPrograms(t *testing.T) {
	h, f, db := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p1 := f.CreateProgram(ctx, "BSCS", "Computer Science")
	p2 := f.CreateProgram(ctx, "BSIT", "Information Technology")
	p3 := f.CreateProgram(ctx, "BSED", "Education")
	org := f.CreateOrganization(ctx, "Chess Club", true, p3.ID)
	leader := f.CreateUser(ctx, "lead@school.edu", "BSCS")
	f.CreateMembership(ctx, org.ID, leader.ID, models.RoleLeader, true)

	rec := testutil.NewRecorder()
	h.HandleUpdateAPI(rec, apiRequest(org, &leader, map[string]any{
		"org_name":         "Chess Club",
		"org_about":        "Weekly games and tournaments.",
		"is_public":        "false",
		"allowed_programs": []any{p1.ID, p2.ID},
	}))
	rec.AssertStatus(t, http.StatusOK)

	got := loadOrg(t, db, org.ID)
	if got.IsPublic {
		t.Error("organization still public")
	}
	if want := sorted([]int64{p1.ID, p2.ID}); !reflect.DeepEqual(sorted(got.AllowedProgramIDs), want) {
		t.Errorf("allowed programs = %v, want %v", got.AllowedProgramIDs, want)
	}
	if got.Description != "Weekly games and tournaments." {
		t.Errorf("description = %q", got.Description)
	}

	body := rec.DecodeJSON(t)
	if body["status"] != "updated" || body["is_public"] != false {
		t.Errorf("unexpected body %v", body)
	}
}

func TestUpdateAPI_NumericStringsAndDuplicates(t *testing.T) {
	h, f, db := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p1 := f.CreateProgram(ctx, "BSCS", "Computer Science")
	org := f.CreateOrganization(ctx, "Robotics", false)
	staff := f.CreateStaff(ctx, "admin@school.edu")

	rec := testutil.NewRecorder()
	idStr := strconv.FormatInt(p1.ID, 10)
	h.HandleUpdateAPI(rec, apiRequest(org, &staff, map[string]any{
		"allowed_programs": []any{idStr, p1.ID, idStr},
		"is_public":        true,
	}))
	rec.AssertStatus(t, http.StatusOK)

	got := loadOrg(t, db, org.ID)
	if !got.IsPublic || !reflect.DeepEqual(got.AllowedProgramIDs, []int64{p1.ID}) {
		t.Errorf("got public=%v programs=%v", got.IsPublic, got.AllowedProgramIDs)
	}
	if got.Name != "Robotics" {
		t.Errorf("absent org_name changed the name to %q", got.Name)
	}
}

func TestUpdateAPI_Errors(t *testing.T) {
	h, f, db := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := f.CreateOrganization(ctx, "Debate", true)
	f.CreateOrganization(ctx, "Chess Club", true)
	officer := f.CreateUser(ctx, "officer@school.edu", "BSCS")
	member := f.CreateUser(ctx, "member@school.edu", "BSCS")
	pendingOfficer := f.CreateUser(ctx, "pending@school.edu", "BSCS")
	f.CreateMembership(ctx, org.ID, officer.ID, models.RoleOfficer, true)
	f.CreateMembership(ctx, org.ID, member.ID, models.RoleMember, true)
	f.CreateMembership(ctx, org.ID, pendingOfficer.ID, models.RoleOfficer, false)

	tests := []struct {
		name   string
		user   *models.User
		body   any
		status int
	}{
		{"anonymous", nil, map[string]any{"is_public": false}, http.StatusUnauthorized},
		{"plain member", &member, map[string]any{"is_public": false}, http.StatusForbidden},
		{"unapproved officer", &pendingOfficer, map[string]any{"is_public": false}, http.StatusForbidden},
		{"bad is_public", &officer, map[string]any{"is_public": "sometimes"}, http.StatusBadRequest},
		{"bad program id", &officer, map[string]any{"allowed_programs": []any{"abc"}}, http.StatusBadRequest},
		{"unknown program", &officer, map[string]any{"allowed_programs": []any{9999}}, http.StatusBadRequest},
		{"empty name", &officer, map[string]any{"org_name": ""}, http.StatusBadRequest},
		{"unknown field", &officer, map[string]any{"color": "red"}, http.StatusBadRequest},
		{"duplicate name", &officer, map[string]any{"org_name": "chess club"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandleUpdateAPI(rec, apiRequest(org, tt.user, tt.body))
			rec.AssertStatus(t, tt.status)
			if body := rec.DecodeJSON(t); body["error"] == nil || body["error"] == "" {
				t.Errorf("missing error message: %v", body)
			}
		})
	}

	if got := loadOrg(t, db, org.ID); got.Name != "Debate" || !got.IsPublic {
		t.Errorf("organization changed by rejected updates: %+v", got)
	}
}

func TestUpdateAPI_NotFoundAndBadID(t *testing.T) {
	h, f, _ := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	staff := f.CreateStaff(ctx, "admin@school.edu")

	rec := testutil.NewRecorder()
	h.HandleUpdateAPI(rec, apiRequest(models.Organization{ID: primitive.NewObjectID()}, &staff, map[string]any{}))
	rec.AssertStatus(t, http.StatusNotFound)

	req := testutil.NewJSONRequest(http.MethodPost, "/api/organizations/nope", map[string]any{})
	req = testutil.WithUser(testutil.WithChiURLParam(req, "id", "nope"), staff)
	rec = testutil.NewRecorder()
	h.HandleUpdateAPI(rec, req)
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestUpdateAPI_AdviserMayEdit(t *testing.T) {
	h, f, db := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := f.CreateOrganization(ctx, "Glee", true)
	adviser := f.CreateUser(ctx, "adviser@school.edu", "")
	f.SetAdviser(ctx, org.ID, adviser.ID)

	rec := testutil.NewRecorder()
	h.HandleUpdateAPI(rec, apiRequest(org, &adviser, map[string]any{"org_about": "<p>Sing <script>alert(1)</script>along</p>"}))
	rec.AssertStatus(t, http.StatusOK)

	if got := loadOrg(t, db, org.ID); got.Description != "<p>Sing along</p>" {
		t.Errorf("description not sanitized: %q", got.Description)
	}
}

func TestHandleEdit_Form(t *testing.T) {
	h, f, db := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p1 := f.CreateProgram(ctx, "BSCS", "Computer Science")
	org := f.CreateOrganization(ctx, "Chess Club", true)
	staff := f.CreateStaff(ctx, "admin@school.edu")

	form := "org_name=Chess+Society&org_about=Games&allowed_programs=" + strconv.FormatInt(p1.ID, 10)
	req := testutil.NewFormRequest("/organizations/"+org.ID.Hex()+"/edit", form)
	req = testutil.WithUser(testutil.WithChiURLParam(req, "id", org.ID.Hex()), staff)
	rec := testutil.NewRecorder()
	h.HandleEdit(rec, req)
	rec.AssertRedirect(t, "/organizations/"+org.ID.Hex()+"?notice=updated")

	got := loadOrg(t, db, org.ID)
	if got.Name != "Chess Society" || got.IsPublic || !reflect.DeepEqual(got.AllowedProgramIDs, []int64{p1.ID}) {
		t.Errorf("unexpected organization %+v", got)
	}
}

func TestHandleEdit_ValidationRerenders(t *testing.T) {
	h, f, db := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := f.CreateOrganization(ctx, "Chess Club", true)
	staff := f.CreateStaff(ctx, "admin@school.edu")

	req := testutil.NewFormRequest("/organizations/"+org.ID.Hex()+"/edit", "org_name=&org_about=Games&is_public=on")
	req = testutil.WithUser(testutil.WithChiURLParam(req, "id", org.ID.Hex()), staff)
	rec := httptest.NewRecorder()
	testutil.ServeIgnoringRender(h.HandleEdit, rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if got := loadOrg(t, db, org.ID); got.Name != "Chess Club" {
		t.Errorf("name changed to %q", got.Name)
	}
}

func TestHandleJoin(t *testing.T) {
	h, f, db := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cs := f.CreateProgram(ctx, "BSCS", "Computer Science")
	public := f.CreateOrganization(ctx, "Chess Club", true)
	private := f.CreateOrganization(ctx, "Robotics", false, cs.ID)
	closed := f.CreateOrganization(ctx, "Nursing Society", false)
	student := f.CreateUser(ctx, "juan@school.edu", "Computer Science")

	join := func(org models.Organization) *httptest.ResponseRecorder {
		req := testutil.NewFormRequest("/organizations/"+org.ID.Hex()+"/join", "")
		req = testutil.WithUser(testutil.WithChiURLParam(req, "id", org.ID.Hex()), student)
		rec := httptest.NewRecorder()
		testutil.ServeIgnoringRender(h.HandleJoin, rec, req)
		return rec
	}

	members := membershipstore.New(db)
	for _, org := range []models.Organization{public, private} {
		rec := join(org)
		if loc := rec.Header().Get("Location"); rec.Code != http.StatusSeeOther || loc != "/organizations/"+org.ID.Hex()+"?notice=requested" {
			t.Errorf("%s: got %d %q", org.Name, rec.Code, loc)
		}
		m, err := members.Find(ctx, org.ID, student.ID)
		if err != nil {
			t.Fatalf("%s: Find: %v", org.Name, err)
		}
		if m.IsApproved || m.Role != models.RoleMember {
			t.Errorf("%s: membership %+v, want pending member", org.Name, m)
		}
	}

	if rec := join(public); rec.Header().Get("Location") != "/organizations/"+public.ID.Hex()+"?notice=pending" {
		t.Errorf("repeat join: got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	if rec := join(closed); rec.Code != http.StatusForbidden {
		t.Errorf("closed org: status = %d, want 403", rec.Code)
	}
	if _, err := members.Find(ctx, closed.ID, student.ID); err == nil {
		t.Error("membership created for an organization outside the student's program")
	}
}

func TestServeView_PrivateForbidden(t *testing.T) {
	h, f, _ := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := f.CreateOrganization(ctx, "Robotics", false)
	outsider := f.CreateUser(ctx, "ana@school.edu", "BSED")

	req := httptest.NewRequest(http.MethodGet, "/organizations/"+org.ID.Hex(), nil)
	req = testutil.WithUser(testutil.WithChiURLParam(req, "id", org.ID.Hex()), outsider)
	rec := httptest.NewRecorder()
	testutil.ServeIgnoringRender(h.ServeView, rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
