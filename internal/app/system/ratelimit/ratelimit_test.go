package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(limit int, d time.Duration) (*Limiter, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	l := New(limit, d)
	l.now = clk.now
	return l, clk
}

func TestLimiter_AllowWithinWindow(t *testing.T) {
	l, clk := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("a") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if l.Allow("a") {
		t.Fatal("4th attempt should be blocked")
	}
	if !l.Allow("b") {
		t.Fatal("other keys are independent")
	}
	if got := l.Remaining("a"); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}

	clk.advance(time.Minute + time.Second)
	if !l.Allow("a") {
		t.Fatal("expected a fresh window after expiry")
	}
	if got := l.Remaining("a"); got != 2 {
		t.Errorf("Remaining = %d, want 2", got)
	}
}

func TestLimiter_ResetAndSweep(t *testing.T) {
	l, clk := newTestLimiter(1, time.Minute)

	l.Allow("a")
	l.Reset("a")
	if !l.Allow("a") {
		t.Fatal("Reset should clear the window")
	}

	clk.advance(2 * time.Minute)
	l.Allow("b")
	if _, ok := l.windows["a"]; ok {
		t.Error("expired window should have been swept")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("POST", "/login", nil)
	r.RemoteAddr = "10.0.0.7:5555"
	if got := ClientIP(r); got != "10.0.0.7" {
		t.Errorf("RemoteAddr: got %q", got)
	}
	r.Header.Set("X-Real-IP", " 192.0.2.9 ")
	if got := ClientIP(r); got != "192.0.2.9" {
		t.Errorf("X-Real-IP: got %q", got)
	}
	r.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")
	if got := ClientIP(r); got != "198.51.100.4" {
		t.Errorf("X-Forwarded-For: got %q", got)
	}
}

func TestAuthLimiter(t *testing.T) {
	var nilLimiter *AuthLimiter
	if msg := nilLimiter.Check(httptest.NewRequest("POST", "/login", nil), "x@school.edu"); msg != "" {
		t.Fatalf("nil limiter blocked: %q", msg)
	}

	al := NewAuthLimiter(0, time.Minute, 2, time.Minute)
	r := httptest.NewRequest("POST", "/login", nil)

	if al.Check(r, "Ana@School.edu") != "" || al.Check(r, "ana@school.edu ") != "" {
		t.Fatal("first two attempts should pass")
	}
	if msg := al.Check(r, "ana@school.edu"); msg != MsgTooManyForAccount {
		t.Fatalf("third attempt msg = %q", msg)
	}
	al.Succeeded("ANA@school.edu")
	if msg := al.Check(r, "ana@school.edu"); msg != "" {
		t.Fatalf("after success msg = %q", msg)
	}

	ipOnly := NewAuthLimiter(1, time.Minute, 0, 0)
	ipOnly.Check(r, "")
	if msg := ipOnly.Check(r, "other@school.edu"); msg != MsgTooManyFromIP {
		t.Fatalf("ip limit msg = %q", msg)
	}
}
