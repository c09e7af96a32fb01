// internal/app/bootstrap/routes.go
package bootstrap

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	auditlogfeature "github.com/dalemusser/soar/internal/app/features/auditlog"
	dashboardfeature "github.com/dalemusser/soar/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/soar/internal/app/features/errors"
	healthfeature "github.com/dalemusser/soar/internal/app/features/health"
	homefeature "github.com/dalemusser/soar/internal/app/features/home"
	loginfeature "github.com/dalemusser/soar/internal/app/features/login"
	logoutfeature "github.com/dalemusser/soar/internal/app/features/logout"
	membersfeature "github.com/dalemusser/soar/internal/app/features/members"
	organizationsfeature "github.com/dalemusser/soar/internal/app/features/organizations"
	registerfeature "github.com/dalemusser/soar/internal/app/features/register"
	auditstore "github.com/dalemusser/soar/internal/app/store/audit"
	userstore "github.com/dalemusser/soar/internal/app/store/users"
	"github.com/dalemusser/soar/internal/app/system/auditlog"
	"github.com/dalemusser/soar/internal/app/system/auth"
	"github.com/dalemusser/soar/internal/app/system/identity"
	"github.com/dalemusser/soar/internal/app/system/metrics"
	"github.com/dalemusser/soar/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// SOAR initializes the template engine, applies session and CSRF middleware,
// and mounts feature routers for the public pages, the auth flows, the
// dashboard, organizations and member management, plus the JSON API.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fresh user data on every request, so staff grants and deactivation
	// take effect without a new login.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))

	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	provider, err := newAuthProvider(appCfg, logger)
	if err != nil {
		logger.Error("auth provider init failed", zap.Error(err))
		return nil, err
	}
	idr := &identity.Reconciler{
		Provider:    provider,
		Users:       userstore.New(deps.MongoDatabase),
		EmailDomain: appCfg.InstitutionEmailDomain,
		Log:         logger.Named("identity"),
	}

	audit := auditlog.New(auditstore.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	errLog := errorsfeature.NewErrorLogger(logger)

	r := chi.NewRouter()

	// Outside CSRF: probes and scrapers carry no token.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, appCfg.AuthProvider, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.With(sessionMgr.LoadSessionUser, metricsGuard(appCfg.MetricsToken, sessionMgr.RequireStaff)).
		Handle("/metrics", metrics.Handler())
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	csrfKey := sha256.Sum256([]byte(appCfg.CSRFKey))
	protect := csrf.Protect(csrfKey[:],
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.RequestHeader("X-CSRFToken"),
		csrf.ErrorHandler(csrfFailure(logger)),
	)

	r.Group(func(app chi.Router) {
		if !secure {
			app.Use(plaintextHTTP)
		}
		app.Use(protect)
		app.Use(sessionMgr.LoadSessionUser)

		homeHandler := homefeature.NewHandler(deps.MongoDatabase, logger)
		app.Mount("/", homefeature.Routes(homeHandler))

		loginHandler := loginfeature.NewHandler(idr, sessionMgr, errLog, audit, logger)
		loginHandler.Limiter = ratelimit.NewAuthLimiter(appCfg.LoginIPLimit, time.Minute, appCfg.LoginEmailLimit, 5*time.Minute)
		app.Mount("/login", loginfeature.Routes(loginHandler))

		registerHandler := registerfeature.NewHandler(idr, errLog, audit, logger)
		registerHandler.Limiter = ratelimit.NewAuthLimiter(appCfg.RegisterIPLimit, 10*time.Minute, 0, 0)
		app.Mount("/register", registerfeature.Routes(registerHandler))

		logoutHandler := logoutfeature.NewHandler(sessionMgr, audit, logger)
		app.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

		errorsHandler := errorsfeature.NewHandler()
		app.Get("/forbidden", errorsHandler.Forbidden)
		app.Get("/unauthorized", errorsHandler.Unauthorized)

		dashboardHandler := dashboardfeature.NewHandler(deps.MongoDatabase, errLog, logger)
		app.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))

		orgHandler := organizationsfeature.NewHandler(deps.MongoDatabase, errLog, audit, logger)
		membersHandler := membersfeature.NewHandler(deps.MongoDatabase, errLog, audit, logger)

		// The member page sits under the organization path; chi prefers the
		// {id} pattern and falls back to the organizations catch-all.
		app.Mount("/organizations/{id}/members", membersfeature.Routes(membersHandler, sessionMgr))
		app.Mount("/organizations", organizationsfeature.Routes(orgHandler, sessionMgr))

		auditHandler := auditlogfeature.NewHandler(deps.MongoDatabase, errLog, logger)
		app.Mount("/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

		app.Mount("/api/organizations", organizationsfeature.APIRoutes(orgHandler, sessionMgr))
		app.Mount("/api/members", membersfeature.APIRoutes(membersHandler, sessionMgr))
	})

	return r, nil
}

// plaintextHTTP marks requests as plain HTTP so CSRF origin checks work in
// development without TLS.
func plaintextHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			r = csrf.PlaintextHTTPRequest(r)
		}
		next.ServeHTTP(w, r)
	})
}

func csrfFailure(logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Warn("csrf check failed",
			zap.String("path", r.URL.Path),
			zap.Error(csrf.FailureReason(r)))
		http.Error(w, "Forbidden - invalid or missing CSRF token", http.StatusForbidden)
	})
}

// metricsGuard lets a request through when it carries "Bearer <token>" and
// token is set; everything else goes through staffOnly.
func metricsGuard(token string, staffOnly func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		staff := staffOnly(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
				if ok && subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}
			staff.ServeHTTP(w, r)
		})
	}
}
