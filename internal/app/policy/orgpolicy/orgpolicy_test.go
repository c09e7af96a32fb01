package orgpolicy_test

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/soar/internal/app/policy/orgpolicy"
	"github.com/dalemusser/soar/internal/app/system/auth"
	"github.com/dalemusser/soar/internal/domain/models"
)

func member(role models.Role, approved bool) *models.OrganizationMember {
	return &models.OrganizationMember{UserID: "u1", Role: role, IsApproved: approved}
}

func TestCanView(t *testing.T) {
	adviser := "adv"
	private := models.Organization{AllowedProgramIDs: []int64{1, 2}, AdviserID: &adviser}
	public := models.Organization{IsPublic: true}

	tests := []struct {
		name string
		v    orgpolicy.Viewer
		org  models.Organization
		m    *models.OrganizationMember
		want bool
	}{
		{"public to anyone", orgpolicy.Viewer{UserID: "u1"}, public, nil, true},
		{"private no program", orgpolicy.Viewer{UserID: "u1", ProgramIDs: []int64{3}}, private, nil, false},
		{"private matching program", orgpolicy.Viewer{UserID: "u1", ProgramIDs: []int64{3, 2}}, private, nil, true},
		{"private as pending member", orgpolicy.Viewer{UserID: "u1"}, private, member(models.RoleMember, false), true},
		{"private as adviser", orgpolicy.Viewer{UserID: "adv"}, private, nil, true},
		{"private as staff", orgpolicy.Viewer{UserID: "s", IsStaff: true}, private, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := orgpolicy.CanView(tt.v, tt.org, tt.m); got != tt.want {
				t.Errorf("CanView = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanEdit(t *testing.T) {
	adviser := "adv"
	org := models.Organization{AdviserID: &adviser}
	v := orgpolicy.Viewer{UserID: "u1"}

	tests := []struct {
		name string
		v    orgpolicy.Viewer
		m    *models.OrganizationMember
		want bool
	}{
		{"non member", v, nil, false},
		{"member", v, member(models.RoleMember, true), false},
		{"pending officer", v, member(models.RoleOfficer, false), false},
		{"officer", v, member(models.RoleOfficer, true), true},
		{"leader", v, member(models.RoleLeader, true), true},
		{"adviser", orgpolicy.Viewer{UserID: "adv"}, nil, true},
		{"staff", orgpolicy.Viewer{UserID: "s", IsStaff: true}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := orgpolicy.CanEdit(tt.v, org, tt.m); got != tt.want {
				t.Errorf("CanEdit = %v, want %v", got, tt.want)
			}
			if got := orgpolicy.CanManageMembers(tt.v, org, tt.m); got != tt.want {
				t.Errorf("CanManageMembers = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanJoin(t *testing.T) {
	private := models.Organization{AllowedProgramIDs: []int64{7}}
	public := models.Organization{IsPublic: true}
	v := orgpolicy.Viewer{UserID: "u1"}

	if err := orgpolicy.CanJoin(v, public, nil); err != nil {
		t.Errorf("public join: %v", err)
	}
	if err := orgpolicy.CanJoin(v, private, nil); !errors.Is(err, orgpolicy.ErrNotEligible) {
		t.Errorf("private join without program: %v", err)
	}
	v.ProgramIDs = []int64{7}
	if err := orgpolicy.CanJoin(v, private, nil); err != nil {
		t.Errorf("private join with program: %v", err)
	}
	if err := orgpolicy.CanJoin(v, public, member(models.RoleMember, false)); !errors.Is(err, orgpolicy.ErrPending) {
		t.Errorf("pending: %v", err)
	}
	if err := orgpolicy.CanJoin(v, public, member(models.RoleMember, true)); !errors.Is(err, orgpolicy.ErrAlreadyMember) {
		t.Errorf("already member: %v", err)
	}
}

func TestViewerFrom(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: "u9", IsStaff: true})
	v := orgpolicy.ViewerFrom(req)
	if v.UserID != "u9" || !v.IsStaff || v.ProgramIDs != nil {
		t.Errorf("ViewerFrom = %+v", v)
	}
}
