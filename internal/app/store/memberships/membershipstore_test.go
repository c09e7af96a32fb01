package membershipstore_test

import (
	"errors"
	"testing"

	membershipstore "github.com/dalemusser/soar/internal/app/store/memberships"
	"github.com/dalemusser/soar/internal/domain/models"
	"github.com/dalemusser/soar/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Add(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fx.CreateOrganization(ctx, "Test Org", true)
	user := fx.CreateUser(ctx, "member@example.edu", "BSCS")

	m, err := store.Add(ctx, org.ID, user.ID, models.RoleMember, false)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if m.ID.IsZero() || m.JoinedAt.IsZero() {
		t.Errorf("unexpected membership %+v", m)
	}

	// Role is stored in its string form
	var raw bson.M
	if err := db.Collection("organization_members").FindOne(ctx, bson.M{"_id": m.ID}).Decode(&raw); err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if raw["role"] != "member" {
		t.Errorf("stored role = %v, want \"member\"", raw["role"])
	}

	if _, err := store.Add(ctx, org.ID, user.ID, models.RoleOfficer, true); !errors.Is(err, membershipstore.ErrDuplicateMembership) {
		t.Errorf("duplicate err = %v", err)
	}
	if _, err := store.Add(ctx, org.ID, "someone", models.Role(0), true); !errors.Is(err, models.ErrInvalidRole) {
		t.Errorf("invalid role err = %v", err)
	}

	got, err := store.Find(ctx, org.ID, user.ID)
	if err != nil || got.ID != m.ID {
		t.Errorf("Find = %+v, %v", got, err)
	}
	if _, err := store.Find(ctx, org.ID, "nobody"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("Find missing err = %v", err)
	}
}

func TestStore_SetRole_Guarded(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fx.CreateOrganization(ctx, "Test Org", true)
	user := fx.CreateUser(ctx, "member@example.edu", "")
	m := fx.CreateMembership(ctx, org.ID, user.ID, models.RoleMember, true)

	if err := store.SetRole(ctx, m.ID, models.RoleMember, models.RoleOfficer); err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}
	if got := fx.MembershipRole(ctx, m.ID); got != models.RoleOfficer {
		t.Errorf("role = %v, want officer", got)
	}

	// A second writer still expecting "member" loses.
	if err := store.SetRole(ctx, m.ID, models.RoleMember, models.RoleOfficer); !errors.Is(err, membershipstore.ErrStaleRole) {
		t.Errorf("stale SetRole err = %v", err)
	}
	if err := store.SetRole(ctx, primitive.NewObjectID(), models.RoleMember, models.RoleOfficer); !errors.Is(err, membershipstore.ErrStaleRole) {
		t.Errorf("missing SetRole err = %v", err)
	}
	if got := fx.MembershipRole(ctx, m.ID); got != models.RoleOfficer {
		t.Errorf("role = %v after stale writes, want officer", got)
	}
}

func TestStore_ApproveAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fx.CreateOrganization(ctx, "Test Org", true)
	user := fx.CreateUser(ctx, "pending@example.edu", "")
	m := fx.CreateMembership(ctx, org.ID, user.ID, models.RoleMember, false)

	if err := store.Approve(ctx, m.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	got, _ := store.GetByID(ctx, m.ID)
	if !got.IsApproved {
		t.Error("expected membership to be approved")
	}
	if err := store.Approve(ctx, primitive.NewObjectID()); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("Approve missing err = %v", err)
	}

	n, err := store.Delete(ctx, m.ID)
	if err != nil || n != 1 {
		t.Fatalf("Delete = %d, %v", n, err)
	}
	n, _ = store.Delete(ctx, m.ID)
	if n != 0 {
		t.Errorf("second Delete = %d, want 0", n)
	}
}

func TestStore_ListAndCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fx.CreateOrganization(ctx, "Test Org", true)
	other := fx.CreateOrganization(ctx, "Other Org", true)

	leader := fx.CreateUser(ctx, "leader@example.edu", "")
	officer := fx.CreateUser(ctx, "officer@example.edu", "")
	member := fx.CreateUser(ctx, "member@example.edu", "")
	pending := fx.CreateUser(ctx, "pending@example.edu", "")

	fx.CreateMembership(ctx, org.ID, leader.ID, models.RoleLeader, true)
	fx.CreateMembership(ctx, org.ID, officer.ID, models.RoleOfficer, true)
	fx.CreateMembership(ctx, org.ID, member.ID, models.RoleMember, true)
	fx.CreateMembership(ctx, org.ID, pending.ID, models.RoleMember, false)
	fx.CreateMembership(ctx, other.ID, member.ID, models.RoleLeader, true)

	list, err := store.ListByOrg(ctx, org.ID)
	if err != nil {
		t.Fatalf("ListByOrg failed: %v", err)
	}
	if len(list) != 4 || list[0].UserID != pending.ID {
		t.Errorf("expected 4 memberships with the pending one first, got %+v", list)
	}

	some, err := store.ListByOrgUsers(ctx, org.ID, []string{leader.ID, "ghost"})
	if err != nil || len(some) != 1 {
		t.Errorf("ListByOrgUsers = %+v, %v", some, err)
	}
	none, _ := store.ListByOrgUsers(ctx, org.ID, nil)
	if len(none) != 0 {
		t.Error("empty user list should match nothing")
	}

	mine, err := store.ListByUser(ctx, member.ID)
	if err != nil || len(mine) != 2 {
		t.Errorf("ListByUser = %+v, %v", mine, err)
	}

	counts, err := store.CountByRole(ctx, org.ID)
	if err != nil {
		t.Fatalf("CountByRole failed: %v", err)
	}
	want := membershipstore.RoleCounts{Members: 1, Officers: 1, Leaders: 1, Pending: 1}
	if counts != want {
		t.Errorf("counts = %+v, want %+v", counts, want)
	}
	if counts.Total() != 3 {
		t.Errorf("Total = %d, want 3", counts.Total())
	}
}
