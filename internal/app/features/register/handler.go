// internal/app/features/register/handler.go
package register

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/soar/internal/app/features/errors"
	"github.com/dalemusser/soar/internal/app/system/auditlog"
	"github.com/dalemusser/soar/internal/app/system/auth"
	"github.com/dalemusser/soar/internal/app/system/authprovider"
	"github.com/dalemusser/soar/internal/app/system/formutil"
	"github.com/dalemusser/soar/internal/app/system/identity"
	"github.com/dalemusser/soar/internal/app/system/inputval"
	"github.com/dalemusser/soar/internal/app/system/ratelimit"
	"github.com/dalemusser/soar/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

type Handler struct {
	Identity    *identity.Reconciler
	EmailDomain string
	Log         *zap.Logger
	ErrLog      *uierrors.ErrorLogger
	AuditLog    *auditlog.Logger

	// Limiter throttles sign-ups per client IP; nil disables throttling.
	Limiter *ratelimit.AuthLimiter
}

func NewHandler(idr *identity.Reconciler, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Identity:    idr,
		EmailDomain: idr.EmailDomain,
		Log:         logger,
		ErrLog:      errLog,
		AuditLog:    audit,
	}
}

type registerFormData struct {
	formutil.Base
	identity.RegistrationForm
	EmailDomain string
}

func formFrom(r *http.Request) identity.RegistrationForm {
	return identity.RegistrationForm{
		Username:  r.FormValue("username"),
		Email:     r.FormValue("email"),
		StudentID: r.FormValue("student_id"),
		FirstName: r.FormValue("first_name"),
		LastName:  r.FormValue("last_name"),
		Course:    r.FormValue("course"),
		YearLevel: r.FormValue("year_level"),
		Password1: r.FormValue("password1"),
		Password2: r.FormValue("password2"),
	}
}

// ServeRegister handles GET /register.
func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	data := registerFormData{EmailDomain: h.EmailDomain}
	formutil.SetBase(&data.Base, r, "Register", "/")
	templates.Render(w, r, "register", data)
}

// HandleRegister handles POST /register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/register")
		return
	}
	form := formFrom(r)

	if msg := h.Limiter.Check(r, ""); msg != "" {
		h.Log.Warn("registration throttled", zap.String("ip", ratelimit.ClientIP(r)))
		h.renderForm(w, r, http.StatusTooManyRequests, form, func(d *registerFormData) { d.SetError(msg) })
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Provider())
	defer cancel()

	u, err := h.Identity.Register(ctx, form)
	if err != nil {
		var res *inputval.Result
		status := http.StatusBadGateway
		switch {
		case errors.As(err, &res):
			status = http.StatusBadRequest
		case errors.Is(err, identity.ErrStudentIDTaken), errors.Is(err, identity.ErrUsernameTaken),
			errors.Is(err, identity.ErrEmailTaken):
			status = http.StatusConflict
		case authprovider.IsKind(err, authprovider.KindRejected):
			status = http.StatusBadRequest
		default:
			h.Log.Error("registration failed", zap.Error(err), zap.String("email", form.Email))
		}
		h.AuditLog.RegistrationFailed(ctx, r, form.Email, identity.Message(err))
		h.renderFormWithError(w, r, status, form, err)
		return
	}

	h.AuditLog.Registered(ctx, r, u.ID, u.Email)
	http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
}

func (h *Handler) renderFormWithError(w http.ResponseWriter, r *http.Request, status int, form identity.RegistrationForm, err error) {
	h.renderForm(w, r, status, form, func(d *registerFormData) {
		var res *inputval.Result
		if errors.As(err, &res) {
			d.SetResult(res)
		} else {
			d.SetError(identity.Message(err))
		}
	})
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, form identity.RegistrationForm, withErr func(*registerFormData)) {
	// Never echo passwords back into the page.
	form.Password1, form.Password2 = "", ""
	data := registerFormData{RegistrationForm: form, EmailDomain: h.EmailDomain}
	formutil.SetBase(&data.Base, r, "Register", "/")
	withErr(&data)

	w.WriteHeader(status)
	templates.Render(w, r, "register", data)
}
