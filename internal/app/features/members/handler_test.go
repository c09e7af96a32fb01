package members_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	uierrors "github.com/dalemusser/soar/internal/app/features/errors"
	"github.com/dalemusser/soar/internal/app/features/members"
	membershipstore "github.com/dalemusser/soar/internal/app/store/memberships"
	"github.com/dalemusser/soar/internal/domain/models"
	"github.com/dalemusser/soar/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*members.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	errLog := uierrors.NewErrorLogger(logger)
	return members.NewHandler(db, errLog, nil, logger), testutil.NewFixtures(t, db)
}

func actionRequest(method, path string, memberID primitive.ObjectID, actor models.User) *http.Request {
	req := testutil.NewJSONRequest(method, path, nil)
	req = testutil.WithChiURLParam(req, "id", memberID.Hex())
	return testutil.WithUser(req, actor)
}

func TestPromote_LeaderPromotesMember(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fixtures.CreateOrganization(ctx, "Chess Club", true)
	leader := fixtures.CreateUser(ctx, "lead@school.edu", "BSCS")
	student := fixtures.CreateUser(ctx, "juan@school.edu", "BSCS")
	fixtures.CreateMembership(ctx, org.ID, leader.ID, models.RoleLeader, true)
	m := fixtures.CreateMembership(ctx, org.ID, student.ID, models.RoleMember, true)

	rec := testutil.NewRecorder()
	handler.HandlePromote(rec, actionRequest(http.MethodPost, "/api/members/x/promote", m.ID, leader))
	rec.AssertStatus(t, http.StatusOK)

	body := rec.DecodeJSON(t)
	if body["status"] != "promoted" || body["new_role"] != "officer" {
		t.Errorf("unexpected body %v", body)
	}
	if got := fixtures.MembershipRole(ctx, m.ID); got != models.RoleOfficer {
		t.Errorf("stored role = %v, want officer", got)
	}
}

func TestPromote_OfficerForbidden(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fixtures.CreateOrganization(ctx, "Chess Club", true)
	officer := fixtures.CreateUser(ctx, "officer@school.edu", "BSCS")
	fixtures.CreateMembership(ctx, org.ID, officer.ID, models.RoleOfficer, true)

	for _, role := range models.AllRoles {
		target := fixtures.CreateUser(ctx, "target-"+role.String()+"@school.edu", "BSCS")
		m := fixtures.CreateMembership(ctx, org.ID, target.ID, role, true)

		for _, path := range []string{"promote", "demote"} {
			rec := testutil.NewRecorder()
			req := actionRequest(http.MethodPost, "/api/members/x/"+path, m.ID, officer)
			if path == "promote" {
				handler.HandlePromote(rec, req)
			} else {
				handler.HandleDemote(rec, req)
			}
			rec.AssertStatus(t, http.StatusForbidden)
		}
		if got := fixtures.MembershipRole(ctx, m.ID); got != role {
			t.Errorf("role changed from %v to %v", role, got)
		}
	}

	// A pending target must not change the answer for an unauthorized actor.
	pending := fixtures.CreateUser(ctx, "pending@school.edu", "BSCS")
	pm := fixtures.CreateMembership(ctx, org.ID, pending.ID, models.RoleMember, false)
	outsider := fixtures.CreateUser(ctx, "outsider@school.edu", "BSCS")
	for _, actor := range []models.User{officer, outsider} {
		for _, path := range []string{"promote", "demote"} {
			rec := testutil.NewRecorder()
			req := actionRequest(http.MethodPost, "/api/members/x/"+path, pm.ID, actor)
			if path == "promote" {
				handler.HandlePromote(rec, req)
			} else {
				handler.HandleDemote(rec, req)
			}
			rec.AssertStatus(t, http.StatusForbidden)
		}
	}

	staff := fixtures.CreateStaff(ctx, "admin@school.edu")
	rec := testutil.NewRecorder()
	handler.HandlePromote(rec, actionRequest(http.MethodPost, "/api/members/x/promote", pm.ID, staff))
	rec.AssertStatus(t, http.StatusBadRequest)
	if got := fixtures.MembershipRole(ctx, pm.ID); got != models.RoleMember {
		t.Errorf("pending role changed to %v", got)
	}
}

func TestPromote_LeaderAtTop(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fixtures.CreateOrganization(ctx, "Chess Club", true)
	staff := fixtures.CreateStaff(ctx, "admin@school.edu")
	lead := fixtures.CreateUser(ctx, "lead@school.edu", "BSCS")
	m := fixtures.CreateMembership(ctx, org.ID, lead.ID, models.RoleLeader, true)

	rec := testutil.NewRecorder()
	handler.HandlePromote(rec, actionRequest(http.MethodPost, "/api/members/x/promote", m.ID, staff))
	rec.AssertStatus(t, http.StatusBadRequest)

	if got := fixtures.MembershipRole(ctx, m.ID); got != models.RoleLeader {
		t.Errorf("stored role = %v, want leader", got)
	}
}

func TestDemote(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fixtures.CreateOrganization(ctx, "Chess Club", true)
	leader := fixtures.CreateUser(ctx, "lead@school.edu", "BSCS")
	fixtures.CreateMembership(ctx, org.ID, leader.ID, models.RoleLeader, true)
	officer := fixtures.CreateUser(ctx, "officer@school.edu", "BSCS")
	m := fixtures.CreateMembership(ctx, org.ID, officer.ID, models.RoleOfficer, true)

	rec := testutil.NewRecorder()
	handler.HandleDemote(rec, actionRequest(http.MethodPost, "/api/members/x/demote", m.ID, leader))
	rec.AssertStatus(t, http.StatusOK)
	if body := rec.DecodeJSON(t); body["status"] != "demoted" || body["new_role"] != "member" {
		t.Errorf("unexpected body %v", body)
	}

	rec = testutil.NewRecorder()
	handler.HandleDemote(rec, actionRequest(http.MethodPost, "/api/members/x/demote", m.ID, leader))
	rec.AssertStatus(t, http.StatusBadRequest)
	if got := fixtures.MembershipRole(ctx, m.ID); got != models.RoleMember {
		t.Errorf("stored role = %v, want member", got)
	}
}

func TestPromote_LeaderOfOtherOrgForbidden(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	chess := fixtures.CreateOrganization(ctx, "Chess Club", true)
	debate := fixtures.CreateOrganization(ctx, "Debate", true)
	leader := fixtures.CreateUser(ctx, "lead@school.edu", "BSCS")
	fixtures.CreateMembership(ctx, debate.ID, leader.ID, models.RoleLeader, true)
	student := fixtures.CreateUser(ctx, "juan@school.edu", "BSCS")
	m := fixtures.CreateMembership(ctx, chess.ID, student.ID, models.RoleMember, true)

	rec := testutil.NewRecorder()
	handler.HandlePromote(rec, actionRequest(http.MethodPost, "/api/members/x/promote", m.ID, leader))
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestPromote_NotFoundAndPending(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	staff := fixtures.CreateStaff(ctx, "admin@school.edu")
	rec := testutil.NewRecorder()
	handler.HandlePromote(rec, actionRequest(http.MethodPost, "/api/members/x/promote", primitive.NewObjectID(), staff))
	rec.AssertStatus(t, http.StatusNotFound)

	org := fixtures.CreateOrganization(ctx, "Chess Club", true)
	student := fixtures.CreateUser(ctx, "juan@school.edu", "BSCS")
	m := fixtures.CreateMembership(ctx, org.ID, student.ID, models.RoleMember, false)
	rec = testutil.NewRecorder()
	handler.HandlePromote(rec, actionRequest(http.MethodPost, "/api/members/x/promote", m.ID, staff))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestPromote_Anonymous(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := testutil.NewJSONRequest(http.MethodPost, "/api/members/x/promote", nil)
	req = testutil.WithChiURLParam(req, "id", primitive.NewObjectID().Hex())
	rec := testutil.NewRecorder()
	handler.HandlePromote(rec, req)
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestApprove(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fixtures.CreateOrganization(ctx, "Chess Club", true)
	officer := fixtures.CreateUser(ctx, "officer@school.edu", "BSCS")
	fixtures.CreateMembership(ctx, org.ID, officer.ID, models.RoleOfficer, true)
	member := fixtures.CreateUser(ctx, "member@school.edu", "BSCS")
	fixtures.CreateMembership(ctx, org.ID, member.ID, models.RoleMember, true)
	applicant := fixtures.CreateUser(ctx, "juan@school.edu", "BSCS")
	pending := fixtures.CreateMembership(ctx, org.ID, applicant.ID, models.RoleMember, false)

	rec := testutil.NewRecorder()
	handler.HandleApprove(rec, actionRequest(http.MethodPost, "/api/members/x/approve", pending.ID, member))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	handler.HandleApprove(rec, actionRequest(http.MethodPost, "/api/members/x/approve", pending.ID, officer))
	rec.AssertStatus(t, http.StatusOK)
	if body := rec.DecodeJSON(t); body["status"] != "approved" {
		t.Errorf("unexpected body %v", body)
	}

	got, err := membershipstore.New(fixtures.DB()).GetByID(ctx, pending.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.IsApproved || got.Role != models.RoleMember {
		t.Errorf("membership after approve = %+v", got)
	}
}

func TestRemove(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fixtures.CreateOrganization(ctx, "Chess Club", true)
	officer := fixtures.CreateUser(ctx, "officer@school.edu", "BSCS")
	fixtures.CreateMembership(ctx, org.ID, officer.ID, models.RoleOfficer, true)
	leader := fixtures.CreateUser(ctx, "lead@school.edu", "BSCS")
	fixtures.CreateMembership(ctx, org.ID, leader.ID, models.RoleLeader, true)
	a := fixtures.CreateUser(ctx, "a@school.edu", "BSCS")
	ma := fixtures.CreateMembership(ctx, org.ID, a.ID, models.RoleMember, true)
	b := fixtures.CreateUser(ctx, "b@school.edu", "BSCS")
	mb := fixtures.CreateMembership(ctx, org.ID, b.ID, models.RoleMember, true)

	store := membershipstore.New(fixtures.DB())
	gone := func(id primitive.ObjectID) bool {
		_, err := store.GetByID(ctx, id)
		return errors.Is(err, mongo.ErrNoDocuments)
	}

	rec := testutil.NewRecorder()
	handler.HandleRemove(rec, actionRequest(http.MethodDelete, "/api/members/x", ma.ID, officer))
	rec.AssertStatus(t, http.StatusForbidden)
	if gone(ma.ID) {
		t.Fatal("officer removed a member")
	}

	rec = testutil.NewRecorder()
	handler.HandleRemove(rec, actionRequest(http.MethodDelete, "/api/members/x", ma.ID, leader))
	rec.AssertStatus(t, http.StatusOK)
	if body := rec.DecodeJSON(t); body["status"] != "removed" || !gone(ma.ID) {
		t.Errorf("leader removal: body %v, gone %v", body, gone(ma.ID))
	}

	rec = testutil.NewRecorder()
	handler.HandleRemove(rec, actionRequest(http.MethodDelete, "/api/members/x", mb.ID, b))
	rec.AssertStatus(t, http.StatusOK)
	if !gone(mb.ID) {
		t.Error("member could not leave")
	}

	rec = testutil.NewRecorder()
	handler.HandleRemove(rec, actionRequest(http.MethodDelete, "/api/members/x", mb.ID, leader))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestServeManage_Authorization(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fixtures.CreateOrganization(ctx, "Chess Club", true)
	member := fixtures.CreateUser(ctx, "member@school.edu", "BSCS")
	fixtures.CreateMembership(ctx, org.ID, member.ID, models.RoleMember, true)

	req := httptest.NewRequest(http.MethodGet, "/organizations/"+org.ID.Hex()+"/members", nil)
	req = testutil.WithUser(testutil.WithChiURLParam(req, "id", org.ID.Hex()), member)
	rec := httptest.NewRecorder()
	testutil.ServeIgnoringRender(handler.ServeManage, rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
