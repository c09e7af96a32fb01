// internal/app/features/members/types.go
package members

import (
	"github.com/dalemusser/soar/internal/app/system/viewdata"
)

// memberRow is one line of the member management table.
type memberRow struct {
	ID        string
	Username  string
	Name      string
	StudentID string
	Course    string
	Role      string
	RoleLabel string
	IsPending bool
	IsSelf    bool

	CanPromote bool
	CanDemote  bool
	CanRemove  bool
}

type manageData struct {
	viewdata.BaseVM
	OrgID          string
	OrgName        string
	Query          string
	Pending        []memberRow
	Active         []memberRow
	Total          int
	CanApprove     bool
	CanChangeRoles bool
}

// actionResponse is the JSON body of a successful member action.
type actionResponse struct {
	Status  string `json:"status"`
	NewRole string `json:"new_role,omitempty"`
}
