// Package formutil provides helpers for form re-rendering with validation errors.
//
// When a form submission fails validation, the form is re-rendered with the
// user's previously entered values, a summary error and the per-field
// messages next to each input.
//
// Example usage:
//
//	type editOrgData struct {
//		formutil.Base
//		Name        string
//		Description string
//	}
//
//	data := editOrgData{Name: name, Description: about}
//	formutil.SetBase(&data.Base, r, "Edit organization", "/organizations")
//	data.SetResult(res)
//	templates.Render(w, r, "organization_edit", data)
package formutil

import (
	"html/template"
	"net/http"

	"github.com/dalemusser/soar/internal/app/system/inputval"
	"github.com/dalemusser/soar/internal/app/system/viewdata"
)

// Base contains common fields for form pages that can be embedded in form data structs.
type Base struct {
	viewdata.BaseVM
	Error       template.HTML
	FieldErrors map[string][]string
}

// SetBase populates the page fields from the request context.
func SetBase(b *Base, r *http.Request, title, backDefault string) {
	b.BaseVM = viewdata.NewBaseVM(r, title, backDefault)
}

// SetError sets the summary message. msg is escaped.
func (b *Base) SetError(msg string) {
	b.Error = template.HTML(template.HTMLEscapeString(msg))
}

// SetResult copies a validation result onto the form: the first message as the
// summary and every message grouped under its field.
func (b *Base) SetResult(res *inputval.Result) {
	if !res.HasErrors() {
		return
	}
	b.SetError(res.First())
	b.FieldErrors = res.ByField()
}

// FieldError returns the first message for field, for templates.
func (b Base) FieldError(field string) string {
	if msgs := b.FieldErrors[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}
