// Package normalize canonicalizes user-entered values before they are
// validated or stored.
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses internal runs of spaces.
// Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Username trims a username. Case is preserved for display; use Fold for lookups.
func Username(s string) string {
	return strings.TrimSpace(s)
}

// Fold returns the case- and diacritic-insensitive form used in *_ci fields.
func Fold(s string) string {
	return text.Fold(strings.TrimSpace(s))
}

// QueryParam trims a search/query value.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// UsernameFromEmail derives a username from the local part of an email address.
func UsernameFromEmail(email string) string {
	local, _, _ := strings.Cut(Email(email), "@")
	return local
}
