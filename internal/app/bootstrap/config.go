// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/soar/internal/app/system/auditlog"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// Auth provider names accepted by auth_provider.
const (
	ProviderGoTrue = "gotrue"
	ProviderMemory = "memory"
)

// appConfigKeys defines the configuration keys for SOAR.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: SOAR_MONGO_URI, SOAR_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "soar", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 5, Desc: "MongoDB min connection pool size (default: 5)"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "soar-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie lifetime (e.g., 24h, 90m)"},

	{Name: "csrf_key", Default: "dev-only-csrf-key-0123456789ABCDEF", Desc: "CSRF authentication key (32 bytes)"},

	// External auth provider
	{Name: "auth_provider", Default: ProviderMemory, Desc: "Identity provider: 'gotrue' or 'memory' (local development)"},
	{Name: "auth_url", Default: "", Desc: "GoTrue base URL (e.g., https://<project>.supabase.co/auth/v1)"},
	{Name: "auth_api_key", Default: "", Desc: "GoTrue API (anon) key"},
	{Name: "auth_redirect_url", Default: "", Desc: "Where confirmation emails send the user back to"},
	{Name: "auth_memory_autoconfirm", Default: true, Desc: "Memory provider: confirm emails at sign-up"},

	{Name: "institution_email_domain", Default: "", Desc: "Registration emails must end with @<domain> (blank accepts any)"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "staff_email", Default: "", Desc: "Email of a registered user to grant staff at startup"},

	{Name: "metrics_token", Default: "", Desc: "Bearer token that lets scrapers read /metrics (blank means staff sessions only)"},

	{Name: "login_ip_limit", Default: 20, Desc: "Login attempts per client IP per minute (0 disables)"},
	{Name: "login_email_limit", Default: 5, Desc: "Login attempts per email per 5 minutes (0 disables)"},
	{Name: "register_ip_limit", Default: 10, Desc: "Registrations per client IP per 10 minutes (0 disables)"},

	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document database work"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for list queries and searches"},
	{Name: "timeout_provider", Default: "15s", Desc: "Deadline for one auth provider round-trip"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// SOAR_* environment variables and flags with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "SOAR", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 24*time.Hour),

		CSRFKey: appValues.String("csrf_key"),

		AuthProvider:          strings.ToLower(strings.TrimSpace(appValues.String("auth_provider"))),
		AuthURL:               appValues.String("auth_url"),
		AuthAPIKey:            appValues.String("auth_api_key"),
		AuthRedirectURL:       appValues.String("auth_redirect_url"),
		AuthMemoryAutoConfirm: appValues.Bool("auth_memory_autoconfirm"),

		InstitutionEmailDomain: strings.TrimPrefix(strings.ToLower(strings.TrimSpace(appValues.String("institution_email_domain"))), "@"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		StaffEmail: appValues.String("staff_email"),

		MetricsToken: appValues.String("metrics_token"),

		LoginIPLimit:    appValues.Int("login_ip_limit"),
		LoginEmailLimit: appValues.Int("login_email_limit"),
		RegisterIPLimit: appValues.Int("register_ip_limit"),

		TimeoutShort:    appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium:   appValues.Duration("timeout_medium", 10*time.Second),
		TimeoutProvider: appValues.Duration("timeout_provider", 15*time.Second),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// SOAR checks the MongoDB URI format, the auth provider settings, the
// secrets and the audit destinations before anything connects.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	switch appCfg.AuthProvider {
	case ProviderGoTrue:
		if appCfg.AuthURL == "" || appCfg.AuthAPIKey == "" {
			return fmt.Errorf("auth_provider=gotrue requires auth_url and auth_api_key")
		}
		if u, err := url.Parse(appCfg.AuthURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid auth_url %q", appCfg.AuthURL)
		}
	case ProviderMemory:
		if coreCfg != nil && coreCfg.Env == "prod" {
			return fmt.Errorf("auth_provider=memory is for development only")
		}
		logger.Warn("using in-memory auth provider; identities are lost on restart")
	default:
		return fmt.Errorf("unknown auth_provider %q (want %q or %q)", appCfg.AuthProvider, ProviderGoTrue, ProviderMemory)
	}

	if len(appCfg.SessionKey) < 32 {
		return fmt.Errorf("session_key must be at least 32 characters")
	}
	if len(appCfg.CSRFKey) < 32 {
		return fmt.Errorf("csrf_key must be at least 32 characters")
	}
	if strings.Contains(appCfg.InstitutionEmailDomain, "@") {
		return fmt.Errorf("institution_email_domain %q must be a bare domain", appCfg.InstitutionEmailDomain)
	}
	if appCfg.InstitutionEmailDomain == "" {
		logger.Warn("institution_email_domain is empty; registration accepts any email domain")
	}

	if appCfg.LoginIPLimit < 0 || appCfg.LoginEmailLimit < 0 || appCfg.RegisterIPLimit < 0 {
		return fmt.Errorf("login_ip_limit, login_email_limit and register_ip_limit must not be negative")
	}

	for key, dest := range map[string]string{"audit_log_auth": appCfg.AuditLogAuth, "audit_log_admin": appCfg.AuditLogAdmin} {
		switch dest {
		case "", auditlog.DestAll, auditlog.DestDB, auditlog.DestLog, auditlog.DestOff:
		default:
			return fmt.Errorf("%s must be one of all, db, log, off (got %q)", key, dest)
		}
	}

	return nil
}
