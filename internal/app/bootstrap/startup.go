// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/soar/internal/app/resources"
	userstore "github.com/dalemusser/soar/internal/app/store/users"
	"github.com/dalemusser/soar/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:    appCfg.TimeoutShort,
		Medium:   appCfg.TimeoutMedium,
		Provider: appCfg.TimeoutProvider,
	})

	resources.LoadSharedTemplates()

	if err := ensureStaff(ctx, deps, appCfg.StaffEmail, logger); err != nil {
		return err
	}
	return nil
}

// ensureStaff grants staff to the registered user with email. Users only come
// into existence through registration or login, so a missing user is logged
// and left for the admin CLI once they have signed up.
func ensureStaff(ctx context.Context, deps DBDeps, email string, logger *zap.Logger) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}

	u, err := userstore.New(deps.MongoDatabase).SetStaff(ctx, email, true)
	if errors.Is(err, mongo.ErrNoDocuments) {
		logger.Warn("staff_email has not registered yet; staff not granted", zap.String("email", email))
		return nil
	}
	if err != nil {
		logger.Error("grant staff failed", zap.String("email", email), zap.Error(err))
		return err
	}
	logger.Info("staff granted at startup", zap.String("email", email), zap.String("user_id", u.ID))
	return nil
}
