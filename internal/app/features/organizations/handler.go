// internal/app/features/organizations/handler.go
package organizations

import (
	uierrors "github.com/dalemusser/soar/internal/app/features/errors"
	membershipstore "github.com/dalemusser/soar/internal/app/store/memberships"
	organizationstore "github.com/dalemusser/soar/internal/app/store/organizations"
	programstore "github.com/dalemusser/soar/internal/app/store/programs"
	userstore "github.com/dalemusser/soar/internal/app/store/users"
	"github.com/dalemusser/soar/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for Organizations.
type Handler struct {
	Orgs        *organizationstore.Store
	Programs    *programstore.Store
	Memberships *membershipstore.Store
	Users       *userstore.Store
	Log         *zap.Logger
	ErrLog      *uierrors.ErrorLogger
	AuditLog    *auditlog.Logger
}

// NewHandler constructs a new Organizations handler bound to a DB and logger.
func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Orgs:        organizationstore.New(db),
		Programs:    programstore.New(db),
		Memberships: membershipstore.New(db),
		Users:       userstore.New(db),
		Log:         logger,
		ErrLog:      errLog,
		AuditLog:    audit,
	}
}
