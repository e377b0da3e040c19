package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/czczc/inspire-papers-viewer/internal/domain"
)

const (
	sessionAudience = "inspire-papers-session"
	stateAudience   = "inspire-papers-oauth-state"

	// DefaultStateTTL bounds how long a browser may take on the consent screen.
	DefaultStateTTL = 10 * time.Minute
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or audience checks.
var ErrInvalidToken = errors.New("invalid session token")

type sessionClaims struct {
	DisplayName string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type stateClaims struct {
	Verifier string `json:"pkce"`
	jwt.RegisteredClaims
}

// TokenIssuer signs browser session cookies and OAuth state cookies with HS256.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. secret must be at least 32 bytes.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) < 32 {
		return nil, errors.New("session secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL returns the session lifetime.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue returns a signed session token for identity.
func (t *TokenIssuer) Issue(identity *domain.Identity) (string, error) {
	if identity == nil || identity.UserID == "" {
		return "", errors.New("identity with user id is required")
	}

	now := t.now()
	claims := sessionClaims{
		DisplayName: identity.DisplayName,
		Email:       identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			Audience:  jwt.ClaimStrings{sessionAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return t.sign(claims)
}

// Verify returns the identity carried by a session token.
func (t *TokenIssuer) Verify(token string) (*domain.Identity, error) {
	var claims sessionClaims
	if err := t.parse(token, &claims, sessionAudience); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &domain.Identity{
		UserID:      claims.Subject,
		DisplayName: claims.DisplayName,
		Email:       claims.Email,
	}, nil
}

// IssueState binds an OAuth state value to its PKCE verifier.
func (t *TokenIssuer) IssueState(state, verifier string) (string, error) {
	now := t.now()
	claims := stateClaims{
		Verifier: verifier,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        state,
			Audience:  jwt.ClaimStrings{stateAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(DefaultStateTTL)),
		},
	}
	return t.sign(claims)
}

// VerifyState checks that token was issued for state and returns the PKCE verifier.
func (t *TokenIssuer) VerifyState(token, state string) (string, error) {
	var claims stateClaims
	if err := t.parse(token, &claims, stateAudience); err != nil {
		return "", err
	}
	if state == "" || claims.ID != state {
		return "", ErrInvalidToken
	}
	return claims.Verifier, nil
}

func (t *TokenIssuer) sign(claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (t *TokenIssuer) parse(token string, claims jwt.Claims, audience string) error {
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}
