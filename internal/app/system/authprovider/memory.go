package authprovider

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

// Memory is an in-process Provider for local development and tests.
// Passwords are kept as bcrypt hashes; nothing survives a restart.
type Memory struct {
	// AutoConfirm marks new identities as confirmed at sign-up.
	AutoConfirm bool
	// AllowUnconfirmedSignIn lets unconfirmed identities sign in; their session
	// carries a nil EmailConfirmedAt instead of a rejection.
	AllowUnconfirmedSignIn bool

	mu      sync.Mutex
	byEmail map[string]*memoryRecord
	tokens  map[string]string // access token → email
	now     func() time.Time
}

type memoryRecord struct {
	identity Identity
	hash     []byte
}

// NewMemory returns an empty Memory provider.
func NewMemory(autoConfirm bool) *Memory {
	return &Memory{
		AutoConfirm: autoConfirm,
		byEmail:     map[string]*memoryRecord{},
		tokens:      map[string]string{},
		now:         time.Now,
	}
}

// SignUp implements Provider.
func (m *Memory) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Identity, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &Error{Op: "signup", Kind: KindRejected, Status: http.StatusUnprocessableEntity, Message: "Password cannot be used.", Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[key]; exists {
		return nil, &Error{Op: "signup", Kind: KindRejected, Status: http.StatusUnprocessableEntity, Code: "user_already_exists", Message: "User already registered"}
	}

	id := Identity{ID: uuid.NewString(), Email: key, Metadata: metadata}
	if m.AutoConfirm {
		t := m.now().UTC()
		id.EmailConfirmedAt = &t
	}
	m.byEmail[key] = &memoryRecord{identity: id, hash: hash}

	out := id
	return &out, nil
}

// SignIn implements Provider.
func (m *Memory) SignIn(ctx context.Context, email, password string) (*Session, error) {
	key := strings.ToLower(strings.TrimSpace(email))

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byEmail[key]
	if !ok || bcrypt.CompareHashAndPassword(rec.hash, []byte(password)) != nil {
		return nil, &Error{Op: "signin", Kind: KindRejected, Status: http.StatusBadRequest, Code: "invalid_credentials", Message: "Invalid login credentials"}
	}
	if !rec.identity.Confirmed() && !m.AllowUnconfirmedSignIn {
		return nil, &Error{Op: "signin", Kind: KindRejected, Status: http.StatusBadRequest, Code: CodeEmailNotConfirmed, Message: "Email not confirmed"}
	}

	tok := &oauth2.Token{
		AccessToken: uuid.NewString(),
		TokenType:   "bearer",
		Expiry:      m.now().Add(time.Hour),
	}
	m.tokens[tok.AccessToken] = key
	return &Session{Token: tok, User: rec.identity}, nil
}

// User implements Provider.
func (m *Memory) User(ctx context.Context, tok *oauth2.Token) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tok == nil {
		return nil, &Error{Op: "user", Kind: KindRejected, Status: http.StatusUnauthorized, Message: "missing token"}
	}
	email, ok := m.tokens[tok.AccessToken]
	if !ok {
		return nil, &Error{Op: "user", Kind: KindRejected, Status: http.StatusUnauthorized, Message: "invalid token"}
	}
	id := m.byEmail[email].identity
	return &id, nil
}

// Confirm marks email as confirmed, as if the user clicked the emailed link.
func (m *Memory) Confirm(email string) bool {
	key := strings.ToLower(strings.TrimSpace(email))

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byEmail[key]
	if !ok {
		return false
	}
	t := m.now().UTC()
	rec.identity.EmailConfirmedAt = &t
	return true
}

// Len returns the number of identities held.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byEmail)
}
