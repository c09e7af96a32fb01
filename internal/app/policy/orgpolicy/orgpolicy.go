// Package orgpolicy provides authorization policies for organizations and
// their member lists.
//
// Authorization rules:
//   - Staff can view, edit and manage every organization
//   - The adviser and approved Officers/Leaders can edit the profile and
//     manage join requests of their organization
//   - Public organizations are visible to everyone signed in; private ones
//     only to users whose course is on the allowed list, and to members
//   - Role changes are decided by the roles engine, not here
package orgpolicy

import (
	"errors"
	"net/http"

	"github.com/dalemusser/soar/internal/app/system/authz"
	"github.com/dalemusser/soar/internal/domain/models"
)

var (
	ErrAlreadyMember = errors.New("you are already a member of this organization")
	ErrPending       = errors.New("your request to join is awaiting approval")
	ErrNotEligible   = errors.New("this organization is limited to specific programs")
)

// Viewer is the signed-in user as seen by the policies.
// ProgramIDs are the programs matching the user's course.
type Viewer struct {
	UserID     string
	IsStaff    bool
	ProgramIDs []int64
}

// ViewerFrom builds a Viewer from the request context. ProgramIDs is left
// empty; callers that need visibility fill it from the program store.
func ViewerFrom(r *http.Request) Viewer {
	id, _, staff, _ := authz.UserCtx(r)
	return Viewer{UserID: id, IsStaff: staff}
}

func (v Viewer) inProgram(org models.Organization) bool {
	for _, id := range v.ProgramIDs {
		if org.AllowsProgram(id) {
			return true
		}
	}
	return false
}

// CanView reports whether v may see org. m is v's membership in org, or nil.
func CanView(v Viewer, org models.Organization, m *models.OrganizationMember) bool {
	switch {
	case v.IsStaff, org.IsPublic, m != nil, org.HasAdviser(v.UserID):
		return true
	default:
		return v.inProgram(org)
	}
}

// CanEdit reports whether v may change org's profile.
func CanEdit(v Viewer, org models.Organization, m *models.OrganizationMember) bool {
	if v.IsStaff || org.HasAdviser(v.UserID) {
		return true
	}
	return m != nil && m.IsApproved && m.Role.AtLeast(models.RoleOfficer)
}

// CanManageMembers reports whether v may open the member page and approve
// join requests. It follows the profile edit rule.
func CanManageMembers(v Viewer, org models.Organization, m *models.OrganizationMember) bool {
	return CanEdit(v, org, m)
}

// CanJoin returns nil when v may request to join org.
func CanJoin(v Viewer, org models.Organization, m *models.OrganizationMember) error {
	if m != nil {
		if !m.IsApproved {
			return ErrPending
		}
		return ErrAlreadyMember
	}
	if org.IsPublic || v.IsStaff || v.inProgram(org) {
		return nil
	}
	return ErrNotEligible
}
