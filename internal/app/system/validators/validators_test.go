package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/soar/internal/app/system/validators"
	"github.com/dalemusser/soar/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll: %v", err)
	}
}

func TestOrgMembersValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	c := db.Collection("organization_members")

	tests := []struct {
		name    string
		doc     bson.M
		wantErr bool
	}{
		{"valid", bson.M{"org_id": primitive.NewObjectID(), "user_id": "u-1", "role": "officer", "is_approved": true, "joined_at": time.Now()}, false},
		{"unknown role", bson.M{"org_id": primitive.NewObjectID(), "user_id": "u-2", "role": "president", "is_approved": true}, true},
		{"missing user", bson.M{"org_id": primitive.NewObjectID(), "role": "member", "is_approved": false}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.InsertOne(ctx, tt.doc)
			if (err != nil) != tt.wantErr {
				t.Errorf("InsertOne err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUsersValidator_StudentIDFormat(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	doc := bson.M{"_id": "u-9", "email": "x@example.edu", "username": "x", "username_ci": "x",
		"is_active": false, "is_staff": false, "student_id": "12345"}
	if _, err := db.Collection("users").InsertOne(ctx, doc); err == nil {
		t.Error("expected validator to reject malformed student_id")
	}
}
