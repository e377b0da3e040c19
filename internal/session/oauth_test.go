package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/czczc/inspire-papers-viewer/internal/domain"
)

// fakeIdP serves the token and userinfo endpoints of an OAuth provider.
type fakeIdP struct {
	server       *httptest.Server
	gotVerifier  string
	gotCode      string
	tokenStatus  int
	userInfoBody string
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	idp := &fakeIdP{
		tokenStatus:  http.StatusOK,
		userInfoBody: `{"sub": "google-123", "name": "Ada Lovelace", "email": "ada@example.org"}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		idp.gotVerifier = r.PostForm.Get("code_verifier")
		idp.gotCode = r.PostForm.Get("code")
		w.Header().Set("Content-Type", "application/json")
		if idp.tokenStatus != http.StatusOK {
			w.WriteHeader(idp.tokenStatus)
			_, _ = w.Write([]byte(`{"error": "invalid_grant", "error_description": "Bad code"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(idp.userInfoBody))
	})
	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)
	return idp
}

func (idp *fakeIdP) config() OAuthConfig {
	return OAuthConfig{
		ClientID:      "client-1",
		ClientSecret:  "secret-1",
		AuthURL:       idp.server.URL + "/authorize",
		TokenURL:      idp.server.URL + "/token",
		UserInfoURL:   idp.server.URL + "/userinfo",
		Scopes:        []string{"openid", "email", "profile"},
		SignInTimeout: 5 * time.Second,
	}
}

// browser follows the consent URL by redirecting straight back to the callback.
func browser(t *testing.T, extra url.Values) Opener {
	return func(consent string) error {
		u, err := url.Parse(consent)
		if err != nil {
			return err
		}
		q := u.Query()
		callback, err := url.Parse(q.Get("redirect_uri"))
		if err != nil {
			return err
		}
		cq := url.Values{}
		cq.Set("state", q.Get("state"))
		cq.Set("code", "code-1")
		for k, v := range extra {
			cq[k] = v
		}
		callback.RawQuery = cq.Encode()

		go func() {
			resp, err := http.Get(callback.String())
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}
}

func TestNewOAuthProvider(t *testing.T) {
	_, err := NewOAuthProvider(OAuthConfig{}, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewOAuthProvider(OAuthConfig{ClientID: "x"}, zerolog.Nop())
	assert.Error(t, err)

	p, err := NewOAuthProvider(OAuthConfig{ClientID: "x", AuthURL: "a", TokenURL: "b", UserInfoURL: "c"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, p.cfg.SignInTimeout)
}

func TestOAuthProvider_AuthCodeURL(t *testing.T) {
	idp := newFakeIdP(t)
	p, err := NewOAuthProvider(idp.config(), zerolog.Nop())
	require.NoError(t, err)

	raw := p.AuthCodeURL("state-1", "verifier-1", "http://localhost:8080/auth/callback")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "/authorize", u.Path)
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.NotEqual(t, "verifier-1", q.Get("code_challenge"))
	assert.Equal(t, "http://localhost:8080/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
}

func TestOAuthProvider_Complete(t *testing.T) {
	t.Run("exchanges code and reads userinfo", func(t *testing.T) {
		idp := newFakeIdP(t)
		p, err := NewOAuthProvider(idp.config(), zerolog.Nop())
		require.NoError(t, err)

		identity, err := p.Complete(context.Background(), "code-9", "verifier-9", "http://localhost/cb")
		require.NoError(t, err)
		assert.Equal(t, &domain.Identity{UserID: "google-123", DisplayName: "Ada Lovelace", Email: "ada@example.org"}, identity)
		assert.Equal(t, "code-9", idp.gotCode)
		assert.Equal(t, "verifier-9", idp.gotVerifier)
	})

	t.Run("numeric id and login fallback", func(t *testing.T) {
		idp := newFakeIdP(t)
		idp.userInfoBody = `{"id": 42, "login": "ada"}`
		p, err := NewOAuthProvider(idp.config(), zerolog.Nop())
		require.NoError(t, err)

		identity, err := p.Complete(context.Background(), "c", "v", "http://localhost/cb")
		require.NoError(t, err)
		assert.Equal(t, "42", identity.UserID)
		assert.Equal(t, "ada", identity.DisplayName)
	})

	t.Run("token endpoint error carries provider text", func(t *testing.T) {
		idp := newFakeIdP(t)
		idp.tokenStatus = http.StatusBadRequest
		p, err := NewOAuthProvider(idp.config(), zerolog.Nop())
		require.NoError(t, err)

		_, err = p.Complete(context.Background(), "c", "v", "http://localhost/cb")
		var authErr *domain.AuthError
		require.True(t, errors.As(err, &authErr))
		assert.Equal(t, "auth/invalid_grant", authErr.Code)
		assert.Contains(t, err.Error(), "Bad code")
	})

	t.Run("userinfo without subject", func(t *testing.T) {
		idp := newFakeIdP(t)
		idp.userInfoBody = `{"name": "Nobody"}`
		p, err := NewOAuthProvider(idp.config(), zerolog.Nop())
		require.NoError(t, err)

		_, err = p.Complete(context.Background(), "c", "v", "http://localhost/cb")
		var authErr *domain.AuthError
		require.True(t, errors.As(err, &authErr))
		assert.Equal(t, CodeUserInfo, authErr.Code)
	})
}

func TestOAuthProvider_Authenticate(t *testing.T) {
	t.Run("completes loopback flow", func(t *testing.T) {
		idp := newFakeIdP(t)
		p, err := NewOAuthProvider(idp.config(), zerolog.Nop(), WithOpener(browser(t, nil)))
		require.NoError(t, err)

		identity, err := p.Authenticate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "google-123", identity.UserID)
		assert.Equal(t, "code-1", idp.gotCode)
		assert.NotEmpty(t, idp.gotVerifier)
		assert.NotNil(t, p.token)

		require.NoError(t, p.SignOut(context.Background()))
		assert.Nil(t, p.token)
	})

	t.Run("user closes the consent page", func(t *testing.T) {
		idp := newFakeIdP(t)
		extra := url.Values{"error": {"access_denied"}}
		p, err := NewOAuthProvider(idp.config(), zerolog.Nop(), WithOpener(browser(t, extra)))
		require.NoError(t, err)

		_, err = p.Authenticate(context.Background())
		var authErr *domain.AuthError
		require.True(t, errors.As(err, &authErr))
		assert.Equal(t, CodePopupClosed, authErr.Code)
	})

	t.Run("browser cannot open", func(t *testing.T) {
		idp := newFakeIdP(t)
		p, err := NewOAuthProvider(idp.config(), zerolog.Nop(), WithOpener(func(string) error {
			return errors.New("no display")
		}))
		require.NoError(t, err)

		_, err = p.Authenticate(context.Background())
		var authErr *domain.AuthError
		require.True(t, errors.As(err, &authErr))
		assert.Equal(t, CodePopupBlocked, authErr.Code)
	})

	t.Run("times out", func(t *testing.T) {
		idp := newFakeIdP(t)
		cfg := idp.config()
		cfg.SignInTimeout = 50 * time.Millisecond
		p, err := NewOAuthProvider(cfg, zerolog.Nop(), WithOpener(func(string) error { return nil }))
		require.NoError(t, err)

		_, err = p.Authenticate(context.Background())
		var authErr *domain.AuthError
		require.True(t, errors.As(err, &authErr))
		assert.Equal(t, CodeTimeout, authErr.Code)
	})
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
		code  string
		err   string
	}{
		{name: "success", query: url.Values{"state": {"s"}, "code": {"abc"}}, code: "abc"},
		{name: "access denied", query: url.Values{"error": {"access_denied"}}, err: CodePopupClosed},
		{name: "provider error", query: url.Values{"error": {"server_error"}, "error_description": {"boom"}}, err: "auth/server_error"},
		{name: "state mismatch", query: url.Values{"state": {"other"}, "code": {"abc"}}, err: CodeInvalidState},
		{name: "missing code", query: url.Values{"state": {"s"}}, err: CodeMissingCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := ParseCallback(tt.query, "s")
			if tt.err == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.code, code)
				return
			}
			var authErr *domain.AuthError
			require.True(t, errors.As(err, &authErr))
			assert.Equal(t, tt.err, authErr.Code)
		})
	}

	t.Run("empty expected state never matches", func(t *testing.T) {
		_, err := ParseCallback(url.Values{"code": {"abc"}}, "")
		assert.ErrorIs(t, err, domain.ErrAuthFailure)
	})
}
