package inputval

import (
	"strings"
	"unicode"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// commonPasswords is a short deny-list of passwords that appear at the top of
// every breach corpus.
var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "passw0rd": {},
	"12345678": {}, "123456789": {}, "1234567890": {}, "qwerty123": {},
	"qwertyuiop": {}, "iloveyou": {}, "sunshine": {}, "princess": {},
	"football": {}, "baseball": {}, "welcome1": {}, "abc12345": {},
	"letmein1": {}, "trustno1": {}, "superman": {}, "starwars": {},
	"whatever": {}, "dragon123": {}, "monkey123": {}, "11111111": {},
	"00000000": {}, "88888888": {}, "asdfghjkl": {}, "changeme": {},
}

// PasswordInput carries the password pair and the identity attributes the
// password must not resemble.
type PasswordInput struct {
	Password1 string
	Password2 string
	Username  string
	Email     string
	StudentID string
}

// CheckPassword appends every password problem to res under the field "password".
func CheckPassword(res *Result, in PasswordInput) {
	const field = "password"

	if in.Password1 == "" {
		res.Add(field, "Password is required.")
		return
	}
	if in.Password1 != in.Password2 {
		res.Add(field, "The two password fields didn't match.")
	}
	if len([]rune(in.Password1)) < MinPasswordLength {
		res.Add(field, "This password is too short. It must contain at least 8 characters.")
	}
	if isAllDigits(in.Password1) {
		res.Add(field, "This password is entirely numeric.")
	}
	lower := strings.ToLower(in.Password1)
	if _, common := commonPasswords[lower]; common {
		res.Add(field, "This password is too common.")
	}

	localPart, _, _ := strings.Cut(in.Email, "@")
	similar := []struct{ label, value string }{
		{"username", in.Username},
		{"email address", localPart},
		{"student ID", in.StudentID},
	}
	for _, s := range similar {
		v := strings.ToLower(strings.TrimSpace(s.value))
		if v == "" {
			continue
		}
		if lower == v || strings.Contains(lower, v) {
			res.Add(field, "The password is too similar to the "+s.label+".")
		}
	}
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
