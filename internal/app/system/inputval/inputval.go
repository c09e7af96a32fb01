// Package inputval validates form input using struct tags.
//
// Fields are tagged for github.com/go-playground/validator with an optional
// `label:"Human name"` used in messages. String values are trimmed before
// any rule runs. Besides the library's rules these are registered:
//
//	bareemail   a bare addr-spec (no display name)
//	username    letters, digits and @.+-_ only
//	studentid   NN-NNNN-NNN
//	posint      integer >= 1 (pair with omitempty when optional)
//
// Validate collects every failing field rather than stopping at the first.
package inputval

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError is a single failed rule.
type FieldError struct {
	Field   string
	Message string
}

// Result holds all validation failures for one input.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return r != nil && len(r.Errors) > 0 }

// Add records a failure for field.
func (r *Result) Add(field, msg string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: msg})
}

// First returns the first message or "".
func (r *Result) First() string {
	if !r.HasErrors() {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// ByField groups messages by field name, for rendering next to form inputs.
func (r *Result) ByField() map[string][]string {
	out := map[string][]string{}
	if r == nil {
		return out
	}
	for _, e := range r.Errors {
		out[e.Field] = append(out[e.Field], e.Message)
	}
	return out
}

// Error implements error so a Result can be returned through error paths.
func (r *Result) Error() string { return r.All() }

var (
	usernameRe  = regexp.MustCompile(`^[\w.@+-]+$`)
	studentIDRe = regexp.MustCompile(`^\d{2}-\d{4}-\d{3}$`)
	localRe     = regexp.MustCompile(`^[A-Za-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+(\.[A-Za-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+)*$`)
	labelRe     = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?$`)
)

// IsValidEmail reports whether s is a bare email address.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	local, domain := s[:at], s[at+1:]
	if len(local) > 64 || len(domain) > 253 || !localRe.MatchString(local) {
		return false
	}
	for _, label := range strings.Split(domain, ".") {
		if !labelRe.MatchString(label) {
			return false
		}
	}
	return true
}

// HasEmailDomain reports whether email ends with "@"+domain (case-insensitive).
func HasEmailDomain(email, domain string) bool {
	domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "@")
	if domain == "" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(email)), "@"+domain)
}

// IsValidUsername reports whether s uses only letters, digits and @.+-_.
func IsValidUsername(s string) bool { return usernameRe.MatchString(s) }

// IsValidStudentID reports whether s has the NN-NNNN-NNN shape.
func IsValidStudentID(s string) bool { return studentIDRe.MatchString(s) }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		if label := sf.Tag.Get("label"); label != "" {
			return label
		}
		return sf.Name
	})

	rules := map[string]func(string) bool{
		"bareemail": IsValidEmail,
		"username":  IsValidUsername,
		"studentid": IsValidStudentID,
		"posint": func(s string) bool {
			n, err := strconv.Atoi(s)
			return err == nil && n >= 1
		},
	}
	for tag, ok := range rules {
		ok := ok
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return ok(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("inputval: register %s: %v", tag, err))
		}
	}
	return v
}

// Validate checks every tagged field of v (a struct or pointer to struct).
// Failures are keyed by the Go field name.
func Validate(v any) *Result {
	res := &Result{}
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return res
	}
	err := validate.Struct(trimmed(rv).Interface())
	if err == nil {
		return res
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return res
	}
	for _, fe := range verrs {
		res.Add(fe.StructField(), message(fe))
	}
	return res
}

// trimmed returns a copy of the struct rv with exported string fields trimmed.
func trimmed(rv reflect.Value) reflect.Value {
	cp := reflect.New(rv.Type()).Elem()
	cp.Set(rv)
	for i := 0; i < cp.NumField(); i++ {
		if f := cp.Field(i); f.Kind() == reflect.String && f.CanSet() {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
	return cp
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
	case "bareemail", "email":
		return "A valid email address is required."
	case "username":
		return label + " may contain only letters, numbers and @/./+/-/_ characters."
	case "studentid":
		return label + " must be in the format NN-NNNN-NNN."
	case "posint":
		return label + " must be a whole number of at least 1."
	}
	return label + " is invalid."
}
