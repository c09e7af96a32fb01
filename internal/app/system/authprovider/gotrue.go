package authprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/soar/internal/app/system/metrics"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// GoTrueConfig configures a GoTrue (Supabase Auth) client.
type GoTrueConfig struct {
	URL         string // e.g. https://<project>.supabase.co/auth/v1
	APIKey      string // anon key, sent as the apikey header
	RedirectURL string // optional email-confirmation redirect
	HTTPClient  *http.Client
}

// GoTrue is a Provider backed by the GoTrue REST API.
type GoTrue struct {
	base        *url.URL
	redirectURL string
	hc          *http.Client
	log         *zap.Logger
}

// NewGoTrue validates cfg and returns a client. It performs no network I/O.
func NewGoTrue(cfg GoTrueConfig, logger *zap.Logger) (*GoTrue, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("gotrue: URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gotrue: API key is required")
	}
	u, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gotrue: invalid URL %q", cfg.URL)
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 15 * time.Second}
	}
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	hc := *base
	hc.Transport = &apiKeyTransport{key: cfg.APIKey, next: rt}

	return &GoTrue{base: u, redirectURL: cfg.RedirectURL, hc: &hc, log: logger}, nil
}

// apiKeyTransport adds the project API key to every request.
type apiKeyTransport struct {
	key  string
	next http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("apikey", t.key)
	return t.next.RoundTrip(r)
}

type gotrueUser struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at"`
	ConfirmedAt      *time.Time     `json:"confirmed_at"`
	UserMetadata     map[string]any `json:"user_metadata"`
}

func (u gotrueUser) identity() Identity {
	confirmed := u.EmailConfirmedAt
	if confirmed == nil {
		confirmed = u.ConfirmedAt
	}
	return Identity{ID: u.ID, Email: u.Email, EmailConfirmedAt: confirmed, Metadata: u.UserMetadata}
}

// tokenResponse covers both /token and /signup-with-autoconfirm bodies.
type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	RefreshToken string      `json:"refresh_token"`
	User         *gotrueUser `json:"user"`

	// A plain /signup response is the user object itself.
	gotrueUser
}

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (b errorBody) message() string {
	for _, s := range []string{b.ErrorDescription, b.Msg, b.Message, b.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// SignUp implements Provider.
func (g *GoTrue) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Identity, error) {
	q := url.Values{}
	if g.redirectURL != "" {
		q.Set("redirect_to", g.redirectURL)
	}
	body := map[string]any{"email": email, "password": password, "data": metadata}

	var out tokenResponse
	if err := g.do(ctx, "signup", nil, http.MethodPost, "/signup", q, body, &out); err != nil {
		return nil, err
	}

	u := out.gotrueUser
	if out.User != nil {
		u = *out.User
	}
	if u.ID == "" {
		return nil, g.fail("signup", &Error{Op: "signup", Kind: KindUnexpected, Message: "response has no user id"})
	}
	id := u.identity()
	return &id, nil
}

// SignIn implements Provider.
func (g *GoTrue) SignIn(ctx context.Context, email, password string) (*Session, error) {
	q := url.Values{"grant_type": {"password"}}
	body := map[string]string{"email": email, "password": password}

	var out tokenResponse
	if err := g.do(ctx, "signin", nil, http.MethodPost, "/token", q, body, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, g.fail("signin", &Error{Op: "signin", Kind: KindUnexpected, Message: "response has no access token"})
	}

	tok := &oauth2.Token{
		AccessToken:  out.AccessToken,
		TokenType:    out.TokenType,
		RefreshToken: out.RefreshToken,
	}
	if out.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	}

	sess := &Session{Token: tok}
	if out.User != nil && out.User.ID != "" {
		sess.User = out.User.identity()
		return sess, nil
	}

	id, err := g.User(ctx, tok)
	if err != nil {
		return nil, err
	}
	sess.User = *id
	return sess, nil
}

// User implements Provider. The bearer token is attached by an oauth2 client
// layered over the API-key transport.
func (g *GoTrue) User(ctx context.Context, tok *oauth2.Token) (*Identity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.hc)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok))

	var u gotrueUser
	if err := g.do(ctx, "user", client, http.MethodGet, "/user", nil, nil, &u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, g.fail("user", &Error{Op: "user", Kind: KindUnexpected, Message: "response has no user id"})
	}
	id := u.identity()
	return &id, nil
}

// do sends one JSON request. A nil client means g.hc.
func (g *GoTrue) do(ctx context.Context, op string, client *http.Client, method, path string, q url.Values, in, out any) error {
	if client == nil {
		client = g.hc
	}

	u := *g.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	var rdr io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return g.fail(op, &Error{Op: op, Kind: KindUnexpected, Err: err})
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return g.fail(op, &Error{Op: op, Kind: KindUnexpected, Err: err})
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return g.fail(op, &Error{Op: op, Kind: KindNetwork, Err: err})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return g.fail(op, &Error{Op: op, Kind: KindNetwork, Status: resp.StatusCode, Err: err})
	}

	if resp.StatusCode >= 400 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		pe := &Error{Op: op, Status: resp.StatusCode, Code: eb.ErrorCode, Message: eb.message()}
		if resp.StatusCode >= 500 {
			pe.Kind = KindUnavailable
		} else {
			pe.Kind = KindRejected
		}
		if pe.Code == "" && strings.EqualFold(pe.Message, "Email not confirmed") {
			pe.Code = CodeEmailNotConfirmed
		}
		return g.fail(op, pe)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return g.fail(op, &Error{Op: op, Kind: KindUnexpected, Status: resp.StatusCode, Err: err})
		}
	}
	metrics.ProviderRequests.WithLabelValues(op, metrics.OutcomeSuccess).Inc()
	return nil
}

func (g *GoTrue) fail(op string, pe *Error) error {
	outcome := metrics.OutcomeError
	if pe.Kind == KindRejected {
		outcome = metrics.OutcomeRejected
	}
	metrics.ProviderRequests.WithLabelValues(op, outcome).Inc()
	g.log.Warn("auth provider request failed",
		zap.String("op", op),
		zap.String("kind", pe.Kind.String()),
		zap.Int("status", pe.Status),
		zap.String("code", pe.Code),
		zap.Error(pe))
	return pe
}
