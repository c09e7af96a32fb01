// internal/domain/models/user.go
package models

import (
	"strings"
	"time"
)

// User is the local mirror of an identity owned by the external auth provider.
//
// NOTE:
//   - ID is the provider's UUID (string form), not a Mongo ObjectID.
//   - No password is stored locally; credentials live only at the provider.
//   - Organization membership is not embedded; use the organization_members collection.
type User struct {
	ID         string     `bson:"_id" json:"id"`
	Username   string     `bson:"username" json:"username"`
	UsernameCI string     `bson:"username_ci" json:"-"` // lowercase, diacritics-stripped
	Email      string     `bson:"email" json:"email"`
	StudentID  *string    `bson:"student_id,omitempty" json:"student_id,omitempty"` // NN-NNNN-NNN
	FirstName  string     `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName   string     `bson:"last_name,omitempty" json:"last_name,omitempty"`
	Course     string     `bson:"course,omitempty" json:"course,omitempty"`
	YearLevel  int        `bson:"year_level,omitempty" json:"year_level,omitempty"`
	IsActive   bool       `bson:"is_active" json:"is_active"`
	IsStaff    bool       `bson:"is_staff" json:"is_staff"`
	LastLogin  *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// DisplayName returns "First Last" when available, otherwise the username.
func (u User) DisplayName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full != "" {
		return full
	}
	return u.Username
}

// StudentIDValue returns the student id or "" when unset.
func (u User) StudentIDValue() string {
	if u.StudentID == nil {
		return ""
	}
	return *u.StudentID
}
