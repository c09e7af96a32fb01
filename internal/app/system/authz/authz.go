// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/dalemusser/soar/internal/app/system/auth"
)

// UserCtx returns the signed-in user's id, display name, staff flag and a found flag.
// Without a user it returns "", "", false, false.
func UserCtx(r *http.Request) (userID string, name string, isStaff bool, ok bool) {
	u, ok := auth.CurrentUser(r)
	if !ok || u.ID == "" {
		return "", "", false, false
	}
	name = u.Name
	if name == "" {
		name = u.Email
	}
	return u.ID, name, u.IsStaff, true
}

// IsStaff reports whether the current request's user is site staff.
func IsStaff(r *http.Request) bool {
	_, _, staff, ok := UserCtx(r)
	return ok && staff
}

// UserID returns the signed-in user's id or "".
func UserID(r *http.Request) string {
	id, _, _, _ := UserCtx(r)
	return id
}

// UserCourse returns the signed-in user's course (program) or "".
func UserCourse(r *http.Request) string {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return ""
	}
	return u.Course
}
