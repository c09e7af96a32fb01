package authprovider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestGoTrue(t *testing.T, h http.HandlerFunc) *GoTrue {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	g, err := NewGoTrue(GoTrueConfig{URL: srv.URL + "/auth/v1", APIKey: "anon-key"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewGoTrue: %v", err)
	}
	return g
}

func TestNewGoTrue_Validates(t *testing.T) {
	tests := []GoTrueConfig{
		{URL: "", APIKey: "k"},
		{URL: "https://x.example", APIKey: ""},
		{URL: "not a url", APIKey: "k"},
	}
	for _, cfg := range tests {
		if _, err := NewGoTrue(cfg, zap.NewNop()); err == nil {
			t.Errorf("NewGoTrue(%+v) expected error", cfg)
		}
	}
}

func TestGoTrue_SignUp(t *testing.T) {
	var gotBody map[string]any
	g := newTestGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/signup" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("apikey") != "anon-key" {
			t.Errorf("apikey header = %q", r.Header.Get("apikey"))
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"0b6f4c1e-1111-2222-3333-444455556666","email":"juan@example.edu","confirmation_sent_at":"2026-01-01T00:00:00Z"}`))
	})

	id, err := g.SignUp(context.Background(), "juan@example.edu", "s3cret-pw", map[string]any{"username": "juan"})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if id.ID != "0b6f4c1e-1111-2222-3333-444455556666" || id.Confirmed() {
		t.Errorf("unexpected identity %+v", id)
	}
	if gotBody["email"] != "juan@example.edu" || gotBody["password"] != "s3cret-pw" {
		t.Errorf("unexpected body %v", gotBody)
	}
	if data, _ := gotBody["data"].(map[string]any); data["username"] != "juan" {
		t.Errorf("metadata not sent: %v", gotBody["data"])
	}
}

func TestGoTrue_SignIn_WithEmbeddedUser(t *testing.T) {
	g := newTestGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected request %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"bearer","expires_in":3600,"refresh_token":"rt",
			"user":{"id":"u-1","email":"juan@example.edu","email_confirmed_at":"2026-01-02T03:04:05Z"}}`))
	})

	sess, err := g.SignIn(context.Background(), "juan@example.edu", "pw")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if sess.Token.AccessToken != "at" || sess.Token.Expiry.IsZero() {
		t.Errorf("unexpected token %+v", sess.Token)
	}
	if sess.User.ID != "u-1" || !sess.User.Confirmed() {
		t.Errorf("unexpected user %+v", sess.User)
	}
}

func TestGoTrue_SignIn_FetchesUserWithBearer(t *testing.T) {
	g := newTestGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			_, _ = w.Write([]byte(`{"access_token":"at-2","token_type":"bearer","expires_in":60}`))
		case "/auth/v1/user":
			if got := r.Header.Get("Authorization"); got != "Bearer at-2" {
				t.Errorf("Authorization = %q", got)
			}
			if r.Header.Get("apikey") != "anon-key" {
				t.Errorf("apikey missing on /user")
			}
			_, _ = w.Write([]byte(`{"id":"u-2","email":"ana@example.edu","confirmed_at":null}`))
		default:
			http.NotFound(w, r)
		}
	})

	sess, err := g.SignIn(context.Background(), "ana@example.edu", "pw")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if sess.User.ID != "u-2" || sess.User.Confirmed() {
		t.Errorf("unexpected user %+v", sess.User)
	}
}

func TestGoTrue_ErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantKind    Kind
		wantMessage string
		unconfirmed bool
	}{
		{"bad credentials", 400, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`, KindRejected, "Invalid login credentials", false},
		{"unconfirmed legacy", 400, `{"error":"invalid_grant","error_description":"Email not confirmed"}`, KindRejected, "Email not confirmed", true},
		{"unconfirmed coded", 400, `{"code":400,"error_code":"email_not_confirmed","msg":"Email not confirmed"}`, KindRejected, "Email not confirmed", true},
		{"server error", 503, `upstream down`, KindUnavailable, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := g.SignIn(context.Background(), "x@example.edu", "pw")
			var pe *Error
			if !errors.As(err, &pe) {
				t.Fatalf("expected *Error, got %T %v", err, err)
			}
			if pe.Kind != tt.wantKind || pe.Status != tt.status || pe.Message != tt.wantMessage {
				t.Errorf("got kind=%s status=%d msg=%q", pe.Kind, pe.Status, pe.Message)
			}
			if IsEmailNotConfirmed(err) != tt.unconfirmed {
				t.Errorf("IsEmailNotConfirmed = %v, want %v", IsEmailNotConfirmed(err), tt.unconfirmed)
			}
		})
	}
}

func TestGoTrue_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	g, err := NewGoTrue(GoTrueConfig{URL: url, APIKey: "k"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewGoTrue: %v", err)
	}
	_, err = g.SignIn(context.Background(), "x@example.edu", "pw")
	if !IsKind(err, KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	var pe *Error
	errors.As(err, &pe)
	if !strings.Contains(pe.UserMessage(), "unavailable") {
		t.Errorf("UserMessage = %q", pe.UserMessage())
	}
}
