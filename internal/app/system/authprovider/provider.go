// Package authprovider talks to the external identity service that owns user
// credentials. The application never stores passwords; it only mirrors the
// identity (UUID + email) the provider hands back.
package authprovider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// Identity is a user as the provider knows it.
type Identity struct {
	ID               string // provider UUID
	Email            string
	EmailConfirmedAt *time.Time
	Metadata         map[string]any
}

// Confirmed reports whether the provider has recorded an email confirmation.
func (i Identity) Confirmed() bool { return i.EmailConfirmedAt != nil && !i.EmailConfirmedAt.IsZero() }

// Session is the result of a password sign-in.
type Session struct {
	Token *oauth2.Token
	User  Identity
}

// Provider is the external identity service.
type Provider interface {
	// SignUp creates a provider identity. The returned identity is usually unconfirmed.
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Identity, error)
	// SignIn exchanges email/password for a session.
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// User returns the identity behind an access token.
	User(ctx context.Context, tok *oauth2.Token) (*Identity, error)
}

// Kind classifies provider failures.
type Kind int

const (
	// KindNetwork means the provider could not be reached.
	KindNetwork Kind = iota + 1
	// KindRejected means the provider refused the request (bad credentials, duplicate email, ...).
	KindRejected
	// KindUnavailable means the provider answered with a 5xx.
	KindUnavailable
	// KindUnexpected means the response could not be understood.
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindRejected:
		return "rejected"
	case KindUnavailable:
		return "unavailable"
	case KindUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// CodeEmailNotConfirmed is the provider's error code for sign-in before confirmation.
const CodeEmailNotConfirmed = "email_not_confirmed"

// Error is returned by every Provider method on failure.
type Error struct {
	Op      string // "signup", "signin", "user"
	Kind    Kind
	Status  int    // HTTP status when known
	Code    string // provider error code when known
	Message string // provider message, safe to show to users
	Err     error  // underlying cause, if any
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("auth provider %s: %s (%d): %s", e.Op, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("auth provider %s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the text shown to the person at the keyboard.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindRejected:
		if e.Message != "" {
			return e.Message
		}
		return "The sign-in service rejected the request."
	case KindNetwork, KindUnavailable:
		return "The sign-in service is unavailable. Please try again later."
	default:
		return "The sign-in service returned an unexpected response."
	}
}

// IsEmailNotConfirmed reports whether err is the provider's unconfirmed-email rejection.
func IsEmailNotConfirmed(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Code == CodeEmailNotConfirmed
}

// IsKind reports whether err is a provider *Error of kind k.
func IsKind(err error, k Kind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == k
}
