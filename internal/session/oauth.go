package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/czczc/inspire-papers-viewer/internal/domain"
)

// OAuth error codes.
const (
	CodeTokenExchange = "auth/token-exchange-failed"
	CodeUserInfo      = "auth/user-info-failed"
)

// OAuthConfig configures an OAuthProvider.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
	// CallbackPort is the loopback port for Authenticate. Zero picks a free port.
	CallbackPort int
	// SignInTimeout bounds Authenticate. Defaults to five minutes.
	SignInTimeout time.Duration
}

// Opener presents a consent URL to the user.
type Opener func(url string) error

// ProviderOption configures an OAuthProvider.
type ProviderOption func(*OAuthProvider)

// WithOpener replaces OpenBrowser.
func WithOpener(open Opener) ProviderOption {
	return func(p *OAuthProvider) { p.open = open }
}

// WithHTTPClient sets the client used for token and userinfo requests.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *OAuthProvider) { p.httpClient = c }
}

// OAuthProvider signs users in with the OAuth2 authorization code flow and PKCE.
type OAuthProvider struct {
	cfg        OAuthConfig
	open       Opener
	httpClient *http.Client
	logger     zerolog.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

var _ IdentityProvider = (*OAuthProvider)(nil)

// NewOAuthProvider creates an OAuthProvider.
func NewOAuthProvider(cfg OAuthConfig, logger zerolog.Logger, opts ...ProviderOption) (*OAuthProvider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("oauth client id is required")
	}
	if cfg.AuthURL == "" || cfg.TokenURL == "" || cfg.UserInfoURL == "" {
		return nil, errors.New("oauth auth, token and userinfo URLs are required")
	}
	if cfg.SignInTimeout == 0 {
		cfg.SignInTimeout = 5 * time.Minute
	}

	p := &OAuthProvider{
		cfg:        cfg,
		open:       OpenBrowser,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With().Str("component", "oauth").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *OAuthProvider) oauthConfig(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.cfg.AuthURL,
			TokenURL: p.cfg.TokenURL,
		},
		RedirectURL: redirectURL,
		Scopes:      p.cfg.Scopes,
	}
}

// AuthCodeURL returns the consent URL for state, with the S256 challenge of verifier.
func (p *OAuthProvider) AuthCodeURL(state, verifier, redirectURL string) string {
	return p.oauthConfig(redirectURL).AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(verifier),
	)
}

// Complete exchanges code and returns the signed-in identity.
func (p *OAuthProvider) Complete(ctx context.Context, code, verifier, redirectURL string) (*domain.Identity, error) {
	identity, _, err := p.complete(ctx, code, verifier, redirectURL)
	return identity, err
}

// Authenticate runs the whole flow: it serves a loopback callback, opens the
// consent URL, and waits for the redirect until ctx or SignInTimeout ends.
func (p *OAuthProvider) Authenticate(ctx context.Context) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.SignInTimeout)
	defer cancel()

	state := oauth2.GenerateVerifier()
	verifier := oauth2.GenerateVerifier()

	srv := newCallbackServer(p.cfg.CallbackPort, state)
	if err := srv.Start(); err != nil {
		return nil, domain.NewAuthError(CodeInternal, err.Error())
	}
	defer func() {
		if err := srv.Stop(); err != nil {
			p.logger.Debug().Err(err).Msg("stopping callback server")
		}
	}()

	redirectURL := srv.RedirectURI()
	consentURL := p.AuthCodeURL(state, verifier, redirectURL)
	p.logger.Debug().Str("redirect_url", redirectURL).Msg("opening consent page")
	if err := p.open(consentURL); err != nil {
		return nil, domain.NewAuthError(CodePopupBlocked, fmt.Sprintf("could not open browser, visit %s", consentURL))
	}

	code, err := srv.Wait(ctx)
	if err != nil {
		return nil, err
	}

	identity, token, err := p.complete(ctx, code, verifier, redirectURL)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.token = token
	p.mu.Unlock()
	return identity, nil
}

// SignOut discards the token held since the last Authenticate.
func (p *OAuthProvider) SignOut(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = nil
	return nil
}

type userInfo struct {
	Sub               string `json:"sub"`
	ID                any    `json:"id"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Login             string `json:"login"`
	Email             string `json:"email"`
}

func (u userInfo) identity() *domain.Identity {
	id := u.Sub
	if id == "" && u.ID != nil {
		id = fmt.Sprint(u.ID)
	}
	name := u.Name
	if name == "" {
		name = u.PreferredUsername
	}
	if name == "" {
		name = u.Login
	}
	return &domain.Identity{UserID: id, DisplayName: name, Email: u.Email}
}

func (p *OAuthProvider) complete(ctx context.Context, code, verifier, redirectURL string) (*domain.Identity, *oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	conf := p.oauthConfig(redirectURL)

	token, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode != "" {
			msg := retrieveErr.ErrorDescription
			if msg == "" {
				msg = retrieveErr.ErrorCode
			}
			return nil, nil, domain.NewAuthError("auth/"+retrieveErr.ErrorCode, msg)
		}
		return nil, nil, domain.NewAuthError(CodeTokenExchange, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, nil, domain.NewAuthError(CodeUserInfo, err.Error())
	}
	resp, err := conf.Client(ctx, token).Do(req)
	if err != nil {
		return nil, nil, domain.NewAuthError(CodeUserInfo, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, nil, domain.NewAuthError(CodeUserInfo, fmt.Sprintf("userinfo returned %d: %s", resp.StatusCode, body))
	}

	var info userInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return nil, nil, domain.NewAuthError(CodeUserInfo, fmt.Sprintf("decoding userinfo: %v", err))
	}

	identity := info.identity()
	if identity.UserID == "" {
		return nil, nil, domain.NewAuthError(CodeUserInfo, "userinfo response has no subject")
	}
	return identity, token, nil
}
