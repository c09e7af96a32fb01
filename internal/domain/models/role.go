// internal/domain/models/role.go
package models

import (
	"encoding"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Role is a member's rank inside one organization.
// Roles are strictly ordered: RoleMember < RoleOfficer < RoleLeader.
// The zero value is not a valid role.
type Role int

const (
	// RoleMember is the default rank of an organization member.
	RoleMember Role = iota + 1

	// RoleOfficer can edit the organization profile and approve join requests.
	RoleOfficer

	// RoleLeader can additionally promote and demote other members.
	RoleLeader
)

var (
	// ErrInvalidRole is returned when parsing an unknown role string.
	ErrInvalidRole = errors.New("invalid role")

	// ErrNoHigherRole is returned by Next when the role is already RoleLeader.
	ErrNoHigherRole = errors.New("member is already a leader and cannot be promoted further")

	// ErrNoLowerRole is returned by Previous when the role is already RoleMember.
	ErrNoLowerRole = errors.New("member is already at the lowest role and cannot be demoted further")
)

// AllRoles lists every role in ascending order.
var AllRoles = []Role{RoleMember, RoleOfficer, RoleLeader}

// String returns the stored (lower-case) form of the role.
func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleOfficer:
		return "officer"
	case RoleLeader:
		return "leader"
	default:
		return "unknown"
	}
}

// Label returns the display form of the role.
func (r Role) Label() string {
	switch r {
	case RoleMember:
		return "Member"
	case RoleOfficer:
		return "Officer"
	case RoleLeader:
		return "Leader"
	default:
		return "Unknown"
	}
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r >= RoleMember && r <= RoleLeader
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r >= min
}

// Next returns the role one rung above r.
func (r Role) Next() (Role, error) {
	if !r.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRole, int(r))
	}
	if r == RoleLeader {
		return r, ErrNoHigherRole
	}
	return r + 1, nil
}

// Previous returns the role one rung below r.
func (r Role) Previous() (Role, error) {
	if !r.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRole, int(r))
	}
	if r == RoleMember {
		return r, ErrNoLowerRole
	}
	return r - 1, nil
}

// ParseRole parses the stored or display form of a role (case-insensitive).
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "member":
		return RoleMember, nil
	case "officer":
		return RoleOfficer, nil
	case "leader":
		return RoleLeader, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

var (
	_ encoding.TextMarshaler   = Role(0)
	_ encoding.TextUnmarshaler = (*Role)(nil)
)

// MarshalText implements encoding.TextMarshaler (used by encoding/json).
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalBSONValue stores the role as its lower-case string.
func (r Role) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if !r.Valid() {
		return 0, nil, fmt.Errorf("%w: %d", ErrInvalidRole, int(r))
	}
	return bson.MarshalValue(r.String())
}

// UnmarshalBSONValue reads a role stored as a string.
func (r *Role) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	s, ok := bson.RawValue{Type: t, Value: data}.StringValueOK()
	if !ok {
		return fmt.Errorf("%w: stored as %s", ErrInvalidRole, t)
	}
	return r.UnmarshalText([]byte(s))
}
