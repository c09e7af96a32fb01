// internal/domain/models/organization.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Organization includes a case/diacritic-insensitive name for search and uniqueness.
//
// AllowedProgramIDs only restricts visibility and joining when IsPublic is false.
type Organization struct {
	ID                primitive.ObjectID `bson:"_id"`
	Name              string             `bson:"name"`
	NameCI            string             `bson:"name_ci"` // ← always stored
	Description       string             `bson:"description"`
	IsPublic          bool               `bson:"is_public"`
	AdviserID         *string            `bson:"adviser_id,omitempty"` // weak reference to users._id
	AllowedProgramIDs []int64            `bson:"allowed_program_ids"`
	CreatedAt         time.Time          `bson:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at"`
}

// HasAdviser reports whether userID is this organization's adviser.
func (o Organization) HasAdviser(userID string) bool {
	return o.AdviserID != nil && userID != "" && *o.AdviserID == userID
}

// AllowsProgram reports whether programID is on the allowed list.
func (o Organization) AllowsProgram(programID int64) bool {
	for _, id := range o.AllowedProgramIDs {
		if id == programID {
			return true
		}
	}
	return false
}
