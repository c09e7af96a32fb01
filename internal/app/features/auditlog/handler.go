// internal/app/features/auditlog/handler.go
package auditlog

import (
	uierrors "github.com/dalemusser/soar/internal/app/features/errors"
	"github.com/dalemusser/soar/internal/app/store/audit"
	organizationstore "github.com/dalemusser/soar/internal/app/store/organizations"
	userstore "github.com/dalemusser/soar/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Events *audit.Store
	Users  *userstore.Store
	Orgs   *organizationstore.Store
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

// NewHandler constructs the audit log viewer bound to db.
func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Events: audit.New(db),
		Users:  userstore.New(db),
		Orgs:   organizationstore.New(db),
		Log:    logger,
		ErrLog: errLog,
	}
}
