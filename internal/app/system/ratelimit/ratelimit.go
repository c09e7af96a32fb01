// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter counts attempts per key in fixed windows. It is safe for
// concurrent use. Expired windows are swept lazily on Allow, so a Limiter
// owns no goroutine.
type Limiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	limit     int
	duration  time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type window struct {
	count     int
	expiresAt time.Time
}

// New returns a Limiter allowing limit attempts per key per duration.
func New(limit int, duration time.Duration) *Limiter {
	return &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      time.Now,
	}
}

// Allow records an attempt for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many attempts key has left in its current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || l.now().After(w.expiresAt) {
		return l.limit
	}
	if rem := l.limit - w.count; rem > 0 {
		return rem
	}
	return 0
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// sweep drops expired windows at most once per duration. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.duration {
		return
	}
	l.lastSweep = now
	for k, w := range l.windows {
		if now.After(w.expiresAt) {
			delete(l.windows, k)
		}
	}
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// AuthLimiter throttles credential attempts per client IP and per email, so
// neither one address nor many addresses can hammer a single account.
// A nil *AuthLimiter allows everything.
type AuthLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewAuthLimiter returns an AuthLimiter. A non-positive limit disables that check.
func NewAuthLimiter(ipLimit int, ipWindow time.Duration, emailLimit int, emailWindow time.Duration) *AuthLimiter {
	al := &AuthLimiter{}
	if ipLimit > 0 {
		al.ip = New(ipLimit, ipWindow)
	}
	if emailLimit > 0 {
		al.email = New(emailLimit, emailWindow)
	}
	return al
}

// Message shown when an attempt is throttled.
const (
	MsgTooManyFromIP     = "Too many attempts. Please wait a minute before trying again."
	MsgTooManyForAccount = "Too many attempts for this account. Please wait a few minutes."
)

// Check records an attempt and returns "" when allowed, otherwise the
// message to show the user.
func (al *AuthLimiter) Check(r *http.Request, email string) string {
	if al == nil {
		return ""
	}
	if al.ip != nil && !al.ip.Allow(ClientIP(r)) {
		return MsgTooManyFromIP
	}
	if key := emailKey(email); al.email != nil && key != "" && !al.email.Allow(key) {
		return MsgTooManyForAccount
	}
	return ""
}

// Succeeded clears the per-email count after a successful sign-in.
func (al *AuthLimiter) Succeeded(email string) {
	if al == nil || al.email == nil {
		return
	}
	if key := emailKey(email); key != "" {
		al.email.Reset(key)
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
