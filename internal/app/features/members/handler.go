// internal/app/features/members/handler.go
package members

import (
	uierrors "github.com/dalemusser/soar/internal/app/features/errors"
	membershipstore "github.com/dalemusser/soar/internal/app/store/memberships"
	organizationstore "github.com/dalemusser/soar/internal/app/store/organizations"
	userstore "github.com/dalemusser/soar/internal/app/store/users"
	"github.com/dalemusser/soar/internal/app/system/auditlog"
	"github.com/dalemusser/soar/internal/app/system/roles"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level handler for organization members: the
// management page and the role/approval/removal actions.
type Handler struct {
	Orgs        *organizationstore.Store
	Memberships *membershipstore.Store
	Users       *userstore.Store
	Roles       *roles.Engine
	Log         *zap.Logger
	ErrLog      *uierrors.ErrorLogger
	AuditLog    *auditlog.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	memberships := membershipstore.New(db)
	return &Handler{
		Orgs:        organizationstore.New(db),
		Memberships: memberships,
		Users:       userstore.New(db),
		Roles:       roles.New(memberships, logger),
		Log:         logger,
		ErrLog:      errLog,
		AuditLog:    audit,
	}
}
