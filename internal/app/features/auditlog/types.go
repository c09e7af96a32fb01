// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/soar/internal/app/store/audit"
	"github.com/dalemusser/soar/internal/app/system/paging"
	"github.com/dalemusser/soar/internal/app/system/viewdata"
)

// listItem is one audit event row.
type listItem struct {
	ID         string
	Timestamp  time.Time
	Category   string
	EventType  string
	ActorName  string // resolved from ActorID
	TargetName string // resolved from UserID
	OrgID      string
	OrgName    string // resolved from OrganizationID
	IP         string
	Success    bool
	Reason     string
	Details    map[string]string
}

type listData struct {
	viewdata.BaseVM

	Items []listItem

	// Filters
	Category  string
	EventType string
	OrgID     string
	OrgName   string
	StartDate string
	EndDate   string

	Categories []categoryOption
	EventTypes []string

	Page    paging.Page
	Range   paging.Range
	PrevURL string
	NextURL string
}

type categoryOption struct {
	Value string
	Label string
}

func allCategories() []categoryOption {
	return []categoryOption{
		{Value: audit.CategoryAuth, Label: "Authentication"},
		{Value: audit.CategoryAdmin, Label: "Organizations and membership"},
	}
}

var (
	authEvents = []string{
		audit.EventLoginSuccess,
		audit.EventLoginFailed,
		audit.EventLoginEmailUnconfirmed,
		audit.EventLogout,
		audit.EventRegistered,
		audit.EventRegistrationFailed,
	}
	adminEvents = []string{
		audit.EventOrgCreated,
		audit.EventOrgUpdated,
		audit.EventMemberJoinRequest,
		audit.EventMemberApproved,
		audit.EventMemberPromoted,
		audit.EventMemberDemoted,
		audit.EventMemberRemoved,
		audit.EventStaffGranted,
		audit.EventStaffRevoked,
	}
)

// eventTypesForCategory returns the event types of category, or all of them
// when category is empty.
func eventTypesForCategory(category string) []string {
	switch category {
	case audit.CategoryAuth:
		return authEvents
	case audit.CategoryAdmin:
		return adminEvents
	case "":
		all := make([]string, 0, len(authEvents)+len(adminEvents))
		all = append(all, authEvents...)
		return append(all, adminEvents...)
	default:
		return nil
	}
}
