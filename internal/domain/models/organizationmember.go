// internal/domain/models/organizationmember.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrganizationMember is the authoritative join between users and organizations.
// Exactly one document per (org_id, user_id).
type OrganizationMember struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrgID      primitive.ObjectID `bson:"org_id" json:"organization"`
	UserID     string             `bson:"user_id" json:"student"`
	Role       Role               `bson:"role" json:"role"`
	IsApproved bool               `bson:"is_approved" json:"is_approved"`
	JoinedAt   time.Time          `bson:"joined_at" json:"date_joined"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"-"`
}
