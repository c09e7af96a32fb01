package formutil_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/soar/internal/app/system/formutil"
	"github.com/dalemusser/soar/internal/app/system/inputval"
)

func TestSetError_Escapes(t *testing.T) {
	var b formutil.Base
	b.SetError(`<b>bad</b>`)
	if string(b.Error) != "&lt;b&gt;bad&lt;/b&gt;" {
		t.Errorf("Error = %q", b.Error)
	}
}

func TestSetResult(t *testing.T) {
	var b formutil.Base
	formutil.SetBase(&b, httptest.NewRequest("GET", "/register", nil), "Register", "/")

	res := &inputval.Result{}
	res.Add("Email", "Use your @school.edu email address.")
	res.Add("password", "Passwords do not match.")
	res.Add("password", "Password is too short.")
	b.SetResult(res)

	if string(b.Error) != "Use your @school.edu email address." {
		t.Errorf("Error = %q", b.Error)
	}
	if got := b.FieldError("password"); got != "Passwords do not match." {
		t.Errorf("FieldError(password) = %q", got)
	}
	if got := len(b.FieldErrors["password"]); got != 2 {
		t.Errorf("password messages = %d, want 2", got)
	}
	if b.FieldError("Username") != "" {
		t.Error("unexpected Username error")
	}
	if b.Title != "Register" {
		t.Errorf("Title = %q", b.Title)
	}
}

func TestSetResult_NilIsNoop(t *testing.T) {
	var b formutil.Base
	b.SetResult(nil)
	if b.Error != "" || b.FieldErrors != nil {
		t.Errorf("unexpected state %+v", b)
	}
}
