package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/czczc/inspire-papers-viewer/internal/domain"
	"github.com/czczc/inspire-papers-viewer/internal/observability"
	"github.com/czczc/inspire-papers-viewer/internal/session"
)

// mockAuth implements Authenticator and remembers the last flow it started.
type mockAuth struct {
	state         string
	verifier      string
	completeFn    func(ctx context.Context, code, verifier, redirectURL string) (*domain.Identity, error)
	completeCalls int
}

func (m *mockAuth) AuthCodeURL(state, verifier, _ string) string {
	m.state, m.verifier = state, verifier
	return "https://idp.example/auth?state=" + url.QueryEscape(state)
}

func (m *mockAuth) Complete(ctx context.Context, code, verifier, redirectURL string) (*domain.Identity, error) {
	m.completeCalls++
	if m.completeFn != nil {
		return m.completeFn(ctx, code, verifier, redirectURL)
	}
	return testIdentity, nil
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// startLogin runs /auth/login and returns the state cookie it set.
func startLogin(t *testing.T, s *Server) *http.Cookie {
	t.Helper()
	rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302 from login, got %d", rr.Code)
	}
	cookie := findCookie(rr, stateCookieName)
	if cookie == nil {
		t.Fatal("login did not set the state cookie")
	}
	return cookie
}

func TestLogin_RedirectsToProvider(t *testing.T) {
	auth := &mockAuth{}
	s := newTestHTTPServer(t, Deps{Auth: auth})

	rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	if auth.state == "" || auth.verifier == "" || auth.state == auth.verifier {
		t.Errorf("expected distinct state and verifier, got %q and %q", auth.state, auth.verifier)
	}
	if loc := rr.Header().Get("Location"); !strings.HasPrefix(loc, "https://idp.example/auth?state=") {
		t.Errorf("unexpected redirect %q", loc)
	}

	cookie := findCookie(rr, stateCookieName)
	if cookie == nil {
		t.Fatal("state cookie not set")
	}
	if !cookie.HttpOnly || cookie.Path != stateCookiePath {
		t.Errorf("unexpected state cookie attributes: %+v", cookie)
	}
	if strings.Contains(cookie.Value, auth.verifier) {
		t.Error("state cookie must not carry the verifier in clear text")
	}
}

func TestLogin_Disabled(t *testing.T) {
	s := newTestHTTPServer(t, Deps{})
	rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestCallback_SignsIn(t *testing.T) {
	auth := &mockAuth{}
	var gotCode, gotVerifier, gotRedirect string
	auth.completeFn = func(_ context.Context, code, verifier, redirectURL string) (*domain.Identity, error) {
		gotCode, gotVerifier, gotRedirect = code, verifier, redirectURL
		return testIdentity, nil
	}
	s := newTestHTTPServer(t, Deps{Auth: auth})
	stateCookie := startLogin(t, s)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state="+url.QueryEscape(auth.state), nil)
	req.AddCookie(stateCookie)
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != "/" {
		t.Errorf("expected redirect to /, got %q", loc)
	}
	if gotCode != "abc" || gotVerifier != auth.verifier || gotRedirect != "http://localhost:8080/auth/callback" {
		t.Errorf("unexpected Complete args: %q %q %q", gotCode, gotVerifier, gotRedirect)
	}

	sessionCookie := findCookie(rr, sessionCookieName)
	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatal("session cookie not set")
	}
	identity, err := s.tokens.Verify(sessionCookie.Value)
	if err != nil {
		t.Fatalf("session cookie does not verify: %v", err)
	}
	if identity.UserID != testIdentity.UserID {
		t.Errorf("expected user %q, got %q", testIdentity.UserID, identity.UserID)
	}
	if c := findCookie(rr, stateCookieName); c == nil || c.MaxAge >= 0 {
		t.Error("state cookie should be cleared")
	}
}

func TestCallback_Rejects(t *testing.T) {
	tests := []struct {
		name        string
		query       func(state string) string
		withCookie  bool
		wantMessage string
	}{
		{
			name:        "state mismatch",
			query:       func(string) string { return "code=abc&state=forged" },
			withCookie:  true,
			wantMessage: "auth/invalid-state",
		},
		{
			name:        "missing state cookie",
			query:       func(state string) string { return "code=abc&state=" + url.QueryEscape(state) },
			withCookie:  false,
			wantMessage: "auth/invalid-state",
		},
		{
			name:        "user closed the consent screen",
			query:       func(string) string { return "error=access_denied" },
			withCookie:  true,
			wantMessage: "auth/popup-closed-by-user",
		},
		{
			name:        "missing code",
			query:       func(state string) string { return "state=" + url.QueryEscape(state) },
			withCookie:  true,
			wantMessage: "auth/missing-code",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{}
			s := newTestHTTPServer(t, Deps{Auth: auth})
			stateCookie := startLogin(t, s)

			req := httptest.NewRequest(http.MethodGet, "/auth/callback?"+tc.query(auth.state), nil)
			if tc.withCookie {
				req.AddCookie(stateCookie)
			}
			rr := serveHTTP(s, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
			if msg := errorMessage(t, rr); !strings.Contains(msg, tc.wantMessage) {
				t.Errorf("expected %q in error, got %q", tc.wantMessage, msg)
			}
			if auth.completeCalls != 0 {
				t.Errorf("expected no token exchange, got %d", auth.completeCalls)
			}
			if findCookie(rr, sessionCookieName) != nil {
				t.Error("session cookie must not be set")
			}
		})
	}
}

func TestCallback_ExchangeFailure(t *testing.T) {
	auth := &mockAuth{
		completeFn: func(context.Context, string, string, string) (*domain.Identity, error) {
			return nil, domain.NewAuthError("auth/invalid_grant", "code expired")
		},
	}
	s := newTestHTTPServer(t, Deps{Auth: auth})
	stateCookie := startLogin(t, s)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state="+url.QueryEscape(auth.state), nil)
	req.AddCookie(stateCookie)
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if findCookie(rr, sessionCookieName) != nil {
		t.Error("session cookie must not be set")
	}
}

func TestSession(t *testing.T) {
	s := newTestHTTPServer(t, Deps{})

	rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/auth/session", nil))
	if body := strings.TrimSpace(rr.Body.String()); body != "null" {
		t.Errorf("expected null identity, got %s", body)
	}

	rr = serveHTTP(s, signedIn(t, s, httptest.NewRequest(http.MethodGet, "/auth/session", nil)))
	var identity domain.Identity
	decodeBody(t, rr, &identity)
	if identity != *testIdentity {
		t.Errorf("expected %+v, got %+v", *testIdentity, identity)
	}
}

func TestLogout(t *testing.T) {
	s := newTestHTTPServer(t, Deps{})

	rr := serveHTTP(s, signedIn(t, s, httptest.NewRequest(http.MethodPost, "/auth/logout", nil)))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	c := findCookie(rr, sessionCookieName)
	if c == nil || c.Value != "" || c.MaxAge >= 0 {
		t.Errorf("expected cleared session cookie, got %+v", c)
	}
}

func TestSessionTransitionsAreRecorded(t *testing.T) {
	metrics := observability.NewMetrics(fmt.Sprintf("test_http_session_%d", time.Now().UnixNano()))
	auth := &mockAuth{}
	s := newTestHTTPServer(t, Deps{Auth: auth, Metrics: metrics})
	transitions := func(label string) float64 {
		return testutil.ToFloat64(metrics.SessionTransitions.WithLabelValues(label))
	}

	stateCookie := startLogin(t, s)
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state="+url.QueryEscape(auth.state), nil)
	req.AddCookie(stateCookie)
	if rr := serveHTTP(s, req); rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}

	if rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=forged", nil)); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a forged state, got %d", rr.Code)
	}

	if rr := serveHTTP(s, signedIn(t, s, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr := serveHTTP(s, httptest.NewRequest(http.MethodPost, "/auth/logout", nil)); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}

	if got := transitions(session.TransitionSignedIn); got != 1 {
		t.Errorf("expected 1 sign-in, got %v", got)
	}
	if got := transitions(session.TransitionSignInFailed); got != 1 {
		t.Errorf("expected 1 failed sign-in, got %v", got)
	}
	if got := transitions(session.TransitionSignedOut); got != 1 {
		t.Errorf("expected 1 sign-out for the signed-in logout only, got %v", got)
	}
}
