// internal/app/features/organizations/types.go
package organizations

import (
	"html/template"

	"github.com/dalemusser/soar/internal/app/system/formutil"
	"github.com/dalemusser/soar/internal/app/system/viewdata"
	"github.com/dalemusser/soar/internal/domain/models"
)

// orgRow is one line of the organization list.
type orgRow struct {
	ID          string
	Name        string
	IsPublic    bool
	IsMember    bool
	IsPending   bool
	Description string
}

type listData struct {
	viewdata.BaseVM
	Query string
	Rows  []orgRow
}

type viewData struct {
	viewdata.BaseVM
	Org         models.Organization
	Description template.HTML
	AdviserName string
	Programs    []models.Program
	Counts      countsView
	MyRole      string
	IsPending   bool
	CanEdit     bool
	CanManage   bool
	CanJoin     bool
	Notice      string
}

type countsView struct {
	Members, Officers, Leaders, Pending, Total int64
}

// programOption is one entry of the allowed-programs multi-select.
type programOption struct {
	ID       int64
	Label    string
	Selected bool
}

type editData struct {
	formutil.Base
	OrgID       string
	Name        string
	Description string
	IsPublic    bool
	Programs    []programOption
}
