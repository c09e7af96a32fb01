// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like ports, TLS,
// logging level and request limits. AppConfig carries everything specific
// to SOAR: the database, the session and CSRF secrets, the external auth
// provider and the institutional email domain.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: soar-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// CSRF protection
	CSRFKey string // 32-byte authentication key for gorilla/csrf

	// External auth provider
	AuthProvider          string // "gotrue" or "memory"
	AuthURL               string // GoTrue base URL, e.g. https://<project>.supabase.co/auth/v1
	AuthAPIKey            string // GoTrue anon key
	AuthRedirectURL       string // optional email-confirmation redirect
	AuthMemoryAutoConfirm bool   // memory provider: confirm emails at sign-up

	// Registration
	InstitutionEmailDomain string // e.g. "school.edu"; registration emails must end with it

	// Audit logging
	AuditLogAuth  string // all | db | log | off
	AuditLogAdmin string // all | db | log | off

	// Staff bootstrap
	StaffEmail string // grant staff to this user at startup if registered

	// Metrics
	MetricsToken string // bearer token for scrapers; staff sessions are always allowed

	// Throttling, attempts per window; 0 disables a check
	LoginIPLimit    int // per client IP per minute
	LoginEmailLimit int // per email per 5 minutes
	RegisterIPLimit int // per client IP per 10 minutes

	// Timeouts
	TimeoutShort    time.Duration
	TimeoutMedium   time.Duration
	TimeoutProvider time.Duration
}
