package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/soar/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts an active, non-staff user whose username is the email local part.
func (f *Fixtures) CreateUser(ctx context.Context, email, course string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, email, course, false)
}

// CreateStaff inserts an active staff user.
func (f *Fixtures) CreateStaff(ctx context.Context, email string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, email, "", true)
}

func (f *Fixtures) insertUser(ctx context.Context, email, course string, staff bool) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	uname := email
	for i, r := range email {
		if r == '@' {
			uname = email[:i]
			break
		}
	}
	u := models.User{
		ID:         uuid.NewString(),
		Username:   uname,
		UsernameCI: text.Fold(uname),
		Email:      email,
		Course:     course,
		IsActive:   true,
		IsStaff:    staff,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateProgram inserts a program with the next counter id.
func (f *Fixtures) CreateProgram(ctx context.Context, code, name string) models.Program {
	f.t.Helper()

	var ctr struct {
		Seq int64 `bson:"seq"`
	}
	err := f.db.Collection("counters").FindOneAndUpdate(ctx,
		bson.M{"_id": "programs"},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&ctr)
	if err != nil {
		f.t.Fatalf("failed to allocate program id: %v", err)
	}

	p := models.Program{ID: ctr.Seq, Code: code, CodeCI: text.Fold(code), Name: name, CreatedAt: time.Now().UTC()}
	if _, err := f.db.Collection("programs").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test program: %v", err)
	}
	return p
}

// CreateOrganization inserts an organization. programIDs only matter when isPublic is false.
func (f *Fixtures) CreateOrganization(ctx context.Context, name string, isPublic bool, programIDs ...int64) models.Organization {
	f.t.Helper()

	now := time.Now().UTC()
	if programIDs == nil {
		programIDs = []int64{}
	}
	org := models.Organization{
		ID:                primitive.NewObjectID(),
		Name:              name,
		NameCI:            text.Fold(name),
		Description:       "About " + name,
		IsPublic:          isPublic,
		AllowedProgramIDs: programIDs,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if _, err := f.db.Collection("organizations").InsertOne(ctx, org); err != nil {
		f.t.Fatalf("failed to create test organization: %v", err)
	}
	return org
}

// SetAdviser makes userID the adviser of orgID.
func (f *Fixtures) SetAdviser(ctx context.Context, orgID primitive.ObjectID, userID string) {
	f.t.Helper()
	if _, err := f.db.Collection("organizations").UpdateByID(ctx, orgID, bson.M{"$set": bson.M{"adviser_id": userID}}); err != nil {
		f.t.Fatalf("failed to set adviser: %v", err)
	}
}

// CreateMembership inserts a membership with the given role and approval state.
func (f *Fixtures) CreateMembership(ctx context.Context, orgID primitive.ObjectID, userID string, role models.Role, approved bool) models.OrganizationMember {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.OrganizationMember{
		ID:         primitive.NewObjectID(),
		OrgID:      orgID,
		UserID:     userID,
		Role:       role,
		IsApproved: approved,
		JoinedAt:   now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("organization_members").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}

// MembershipRole reads back the stored role of a membership.
func (f *Fixtures) MembershipRole(ctx context.Context, id primitive.ObjectID) models.Role {
	f.t.Helper()
	var m models.OrganizationMember
	if err := f.db.Collection("organization_members").FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		f.t.Fatalf("failed to load membership: %v", err)
	}
	return m.Role
}
