// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/soar/internal/app/features/errors"
	"github.com/dalemusser/soar/internal/app/system/auditlog"
	"github.com/dalemusser/soar/internal/app/system/auth"
	"github.com/dalemusser/soar/internal/app/system/authprovider"
	"github.com/dalemusser/soar/internal/app/system/identity"
	"github.com/dalemusser/soar/internal/app/system/ratelimit"
	"github.com/dalemusser/soar/internal/app/system/timeouts"
	"github.com/dalemusser/soar/internal/app/system/viewdata"
	"github.com/dalemusser/soar/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

type Handler struct {
	Identity   *identity.Reconciler
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger

	// Limiter throttles attempts per client IP and per email; nil disables it.
	Limiter *ratelimit.AuthLimiter
}

func NewHandler(idr *identity.Reconciler, sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Identity:   idr,
		Log:        logger,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		AuditLog:   audit,
	}
}

type loginFormData struct {
	viewdata.BaseVM
	Error      string
	Email      string
	ReturnURL  string
	Registered bool
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, urlutil.SafeReturn(query.Get(r, "return"), "", "/dashboard"), http.StatusSeeOther)
		return
	}
	templates.Render(w, r, "login", loginFormData{
		BaseVM:     viewdata.NewBaseVM(r, "Sign in", "/"),
		ReturnURL:  query.Get(r, "return"),
		Registered: query.Get(r, "registered") == "1",
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/login")
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	returnURL := r.FormValue("return")

	if msg := h.Limiter.Check(r, email); msg != "" {
		h.AuditLog.LoginFailed(r.Context(), r, "", email, "throttled")
		h.renderFormWithError(w, r, http.StatusTooManyRequests, msg, email, returnURL)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Provider())
	defer cancel()

	u, err := h.Identity.Login(ctx, email, password)
	switch {
	case err == nil:
	case errors.Is(err, identity.ErrEmailUnconfirmed):
		h.AuditLog.LoginEmailUnconfirmed(ctx, r, email)
		h.renderFormWithError(w, r, http.StatusForbidden, identity.Message(err), email, returnURL)
		return
	case errors.Is(err, identity.ErrMissingCredentials), authprovider.IsKind(err, authprovider.KindRejected):
		h.AuditLog.LoginFailed(ctx, r, "", email, "rejected")
		h.renderFormWithError(w, r, http.StatusUnauthorized, identity.Message(err), email, returnURL)
		return
	default:
		h.Log.Error("login failed", zap.Error(err), zap.String("email", email))
		h.AuditLog.LoginFailed(ctx, r, "", email, "error")
		h.renderFormWithError(w, r, http.StatusBadGateway, identity.Message(err), email, returnURL)
		return
	}

	h.Limiter.Succeeded(email)
	h.createSessionAndRedirect(w, r, u, returnURL)
}

// createSessionAndRedirect binds the session to u and redirects to the destination.
func (h *Handler) createSessionAndRedirect(w http.ResponseWriter, r *http.Request, u *models.User, returnURL string) {
	sess, err := h.SessionMgr.GetSession(r)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			h.Log.Warn("session cookie invalid, using fresh session",
				zap.Error(err),
				zap.String("user_id", u.ID))
		} else {
			h.Log.Error("session store error during login, using fresh session",
				zap.Error(err),
				zap.String("user_id", u.ID))
		}
	}

	su := auth.SessionUser{
		ID:      u.ID,
		Name:    u.DisplayName(),
		Email:   u.Email,
		Course:  u.Course,
		IsStaff: u.IsStaff,
	}
	if err := h.SessionMgr.SignIn(w, r, sess, su); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("user_id", u.ID))
		h.renderFormWithError(w, r, http.StatusInternalServerError, "Unable to create session. Please try again.", u.Email, returnURL)
		return
	}

	h.AuditLog.LoginSuccess(r.Context(), r, u.ID, u.Email)

	dest := urlutil.SafeReturn(returnURL, "", "/dashboard")
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

func (h *Handler) renderFormWithError(w http.ResponseWriter, r *http.Request, status int, msg, email, returnURL string) {
	w.WriteHeader(status)
	templates.Render(w, r, "login", loginFormData{
		BaseVM:    viewdata.NewBaseVM(r, "Sign in", "/"),
		Error:     msg,
		Email:     email,
		ReturnURL: returnURL,
	})
}
