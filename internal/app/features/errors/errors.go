// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/soar/internal/app/system/authz"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/gorilla/csrf"
)

// pageData is the basic view model for error pages.
type pageData struct {
	Title      string
	SiteName   string
	IsLoggedIn bool
	IsStaff    bool
	UserName   string
	Message    string
	BackURL    string
	CSRFToken  string
}

func newPageData(r *http.Request, title, msg, backURL string) pageData {
	_, name, staff, signedIn := authz.UserCtx(r)
	return pageData{
		Title:      title,
		SiteName:   "SOAR",
		IsLoggedIn: signedIn,
		IsStaff:    staff,
		UserName:   name,
		Message:    msg,
		BackURL:    backURL,
		CSRFToken:  csrf.Token(r),
	}
}

// Handler is the errors feature handler.
// No DB needed; it just renders templates.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Forbidden renders a friendly "access denied" page.
// GET /forbidden
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusForbidden)
	templates.Render(w, r, "error_page", newPageData(r, "Access denied",
		"You don't have permission to view this page.", "/"))
}

// Unauthorized renders a friendly "sign in required" page.
// GET /unauthorized
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusUnauthorized)
	templates.Render(w, r, "error_page", newPageData(r, "Sign in required",
		"Please sign in to continue.", "/login"))
}
