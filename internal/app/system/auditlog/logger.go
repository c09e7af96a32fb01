// internal/app/system/auditlog/logger.go
package auditlog

// Terminology: User Identifiers
//   - UserID / userID: the provider-assigned UUID that is also the local users._id
//   - ActorID / actorID: the signed-in user who performed an admin action

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/soar/internal/app/store/audit"
	"github.com/dalemusser/soar/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations accepted by Config fields.
const (
	DestAll = "all" // MongoDB + zap
	DestDB  = "db"  // MongoDB only
	DestLog = "log" // zap only
	DestOff = "off"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout, registration).
	Auth string
	// Admin controls logging for organization and membership changes.
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to MongoDB (via audit.Store) and/or structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger. A nil store disables the database destination.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// getClientIP extracts the client IP from the request; nil means the CLI.
func getClientIP(r *http.Request) string {
	if r == nil {
		return "cli"
	}
	return ratelimit.ClientIP(r)
}

func userAgent(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.UserAgent()
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.ActorID != "" {
		fields = append(fields, zap.String("actor_id", event.ActorID))
	}
	if event.OrganizationID != nil {
		fields = append(fields, zap.String("organization_id", event.OrganizationID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so handlers and tests may run without one.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	}
	if setting == "" {
		setting = DestAll
	}
	if setting == DestOff {
		return
	}

	if setting == DestAll || setting == DestLog {
		l.logToZap(event)
	}
	if (setting == DestAll || setting == DestDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    userID,
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// LoginFailed logs a rejected login attempt. userID is empty when the
// provider did not identify the account.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, userID, email, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailed,
		UserID:        userID,
		IP:            getClientIP(r),
		UserAgent:     userAgent(r),
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"email": email},
	})
}

// LoginEmailUnconfirmed logs a login refused because the address is not yet confirmed.
func (l *Logger) LoginEmailUnconfirmed(ctx context.Context, r *http.Request, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginEmailUnconfirmed,
		IP:            getClientIP(r),
		UserAgent:     userAgent(r),
		Success:       false,
		FailureReason: "email not confirmed",
		Details:       map[string]string{"email": email},
	})
}

// Logout logs a user logout.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    userID,
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
	})
}

// Registered logs a completed registration.
func (l *Logger) Registered(ctx context.Context, r *http.Request, userID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventRegistered,
		UserID:    userID,
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// RegistrationFailed logs a registration the provider or the local store refused.
func (l *Logger) RegistrationFailed(ctx context.Context, r *http.Request, email, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventRegistrationFailed,
		IP:            getClientIP(r),
		UserAgent:     userAgent(r),
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"email": email},
	})
}

// --- Organization Events ---

// OrgCreated logs organization creation.
func (l *Logger) OrgCreated(ctx context.Context, r *http.Request, actorID string, orgID primitive.ObjectID, orgName string) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAdmin,
		EventType:      audit.EventOrgCreated,
		OrganizationID: &orgID,
		ActorID:        actorID,
		IP:             getClientIP(r),
		UserAgent:      userAgent(r),
		Success:        true,
		Details:        map[string]string{"org_name": orgName},
	})
}

// OrgUpdated logs an organization profile update. fields lists what changed.
func (l *Logger) OrgUpdated(ctx context.Context, r *http.Request, actorID string, orgID primitive.ObjectID, fields []string) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAdmin,
		EventType:      audit.EventOrgUpdated,
		OrganizationID: &orgID,
		ActorID:        actorID,
		IP:             getClientIP(r),
		UserAgent:      userAgent(r),
		Success:        true,
		Details:        map[string]string{"fields_changed": strings.Join(fields, ",")},
	})
}

// --- Membership Events ---

// MemberJoinRequested logs a user asking to join an organization.
func (l *Logger) MemberJoinRequested(ctx context.Context, r *http.Request, userID string, orgID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAdmin,
		EventType:      audit.EventMemberJoinRequest,
		OrganizationID: &orgID,
		UserID:         userID,
		ActorID:        userID,
		IP:             getClientIP(r),
		UserAgent:      userAgent(r),
		Success:        true,
	})
}

// MemberApproved logs approval of a pending membership.
func (l *Logger) MemberApproved(ctx context.Context, r *http.Request, actorID, userID string, orgID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAdmin,
		EventType:      audit.EventMemberApproved,
		OrganizationID: &orgID,
		UserID:         userID,
		ActorID:        actorID,
		IP:             getClientIP(r),
		UserAgent:      userAgent(r),
		Success:        true,
	})
}

// RoleChanged logs a promotion or demotion. Failed attempts are logged too,
// with reason set.
func (l *Logger) RoleChanged(ctx context.Context, r *http.Request, actorID, userID string, orgID primitive.ObjectID, promoted bool, from, to, reason string) {
	eventType := audit.EventMemberDemoted
	if promoted {
		eventType = audit.EventMemberPromoted
	}
	details := map[string]string{"from_role": from}
	if to != "" {
		details["to_role"] = to
	}
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAdmin,
		EventType:      eventType,
		OrganizationID: &orgID,
		UserID:         userID,
		ActorID:        actorID,
		IP:             getClientIP(r),
		UserAgent:      userAgent(r),
		Success:        reason == "",
		FailureReason:  reason,
		Details:        details,
	})
}

// MemberRemoved logs removal of a membership.
func (l *Logger) MemberRemoved(ctx context.Context, r *http.Request, actorID, userID string, orgID primitive.ObjectID, role string) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAdmin,
		EventType:      audit.EventMemberRemoved,
		OrganizationID: &orgID,
		UserID:         userID,
		ActorID:        actorID,
		IP:             getClientIP(r),
		UserAgent:      userAgent(r),
		Success:        true,
		Details:        map[string]string{"role": role},
	})
}

// StaffChanged logs a staff grant or revoke performed from the admin CLI.
func (l *Logger) StaffChanged(ctx context.Context, userID string, granted bool) {
	eventType := audit.EventStaffRevoked
	if granted {
		eventType = audit.EventStaffGranted
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		UserID:    userID,
		IP:        getClientIP(nil),
		Success:   true,
	})
}
