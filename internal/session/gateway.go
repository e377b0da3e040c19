// Package session manages the signed-in identity that gates catalog writes.
package session

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/czczc/inspire-papers-viewer/internal/domain"
	"github.com/czczc/inspire-papers-viewer/internal/observability"
)

// Auth error codes produced by this package.
const (
	CodeSignOutFailed = "auth/sign-out-failed"
	CodeCancelled     = "auth/cancelled-popup-request"
	CodeInternal      = "auth/internal-error"
)

// Session transition labels recorded in metrics.
const (
	TransitionSignedIn      = "signed_in"
	TransitionSignedOut     = "signed_out"
	TransitionSignInFailed  = "sign_in_failed"
	TransitionSignOutFailed = "sign_out_failed"
)

// IdentityProvider runs interactive sign-in against a third-party provider.
type IdentityProvider interface {
	// Authenticate blocks until the user has signed in or aborted.
	Authenticate(ctx context.Context) (*domain.Identity, error)
	// SignOut discards provider-side credentials.
	SignOut(ctx context.Context) error
}

// Handler receives the current session. A nil identity means signed out.
type Handler func(identity *domain.Identity)

// Token identifies a subscription.
type Token uint64

// Gateway owns the current session and notifies subscribers of transitions.
//
// Deliveries are serialized: a handler never runs concurrently with another
// delivery, and the last state a subscriber observes is always the current one.
// Handlers may call Unsubscribe and Current but must not call Subscribe,
// SignIn or SignOut.
type Gateway struct {
	provider IdentityProvider
	metrics  *observability.Metrics
	logger   zerolog.Logger

	deliverMu sync.Mutex

	mu      sync.Mutex
	current *domain.Identity
	subs    map[Token]Handler
	nextTok Token
}

// NewGateway creates a signed-out Gateway over provider. metrics may be nil.
func NewGateway(provider IdentityProvider, logger zerolog.Logger, metrics *observability.Metrics) *Gateway {
	return &Gateway{
		provider: provider,
		metrics:  metrics,
		logger:   observability.WithComponent(logger, "session"),
		subs:     make(map[Token]Handler),
	}
}

// SignIn runs the provider's interactive flow and makes the result the current session.
func (g *Gateway) SignIn(ctx context.Context) (*domain.Identity, error) {
	identity, err := g.provider.Authenticate(ctx)
	if err == nil && identity == nil {
		err = domain.NewAuthError(CodeInternal, "identity provider returned no user")
	}
	if err != nil {
		authErr := toAuthError(err)
		g.metrics.RecordSessionTransition(TransitionSignInFailed)
		g.logger.Warn().Err(err).Str("code", authErr.Code).Msg("sign-in failed")
		return nil, authErr
	}

	g.transition(identity)
	g.metrics.RecordSessionTransition(TransitionSignedIn)
	g.logger.Info().Str("user_id", identity.UserID).Msg("signed in")
	return identity, nil
}

// SignOut clears the current session.
func (g *Gateway) SignOut(ctx context.Context) error {
	if err := g.provider.SignOut(ctx); err != nil {
		g.metrics.RecordSessionTransition(TransitionSignOutFailed)
		g.logger.Error().Err(err).Msg("sign-out failed")
		return domain.NewAuthError(CodeSignOutFailed, "failed to sign out")
	}

	g.transition(nil)
	g.metrics.RecordSessionTransition(TransitionSignedOut)
	g.logger.Info().Msg("signed out")
	return nil
}

// Current returns the signed-in identity, or nil.
func (g *Gateway) Current() *domain.Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// Subscribe registers handler and immediately invokes it with the current session.
func (g *Gateway) Subscribe(handler Handler) Token {
	g.deliverMu.Lock()
	defer g.deliverMu.Unlock()

	g.mu.Lock()
	g.nextTok++
	tok := g.nextTok
	g.subs[tok] = handler
	current := g.current
	g.mu.Unlock()

	handler(current)
	return tok
}

// Unsubscribe permanently stops deliveries to the subscription. Unknown tokens are ignored.
func (g *Gateway) Unsubscribe(tok Token) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.subs, tok)
}

// transition swaps the current session and delivers it to every live subscriber
// in subscription order.
func (g *Gateway) transition(identity *domain.Identity) {
	g.deliverMu.Lock()
	defer g.deliverMu.Unlock()

	g.mu.Lock()
	g.current = identity
	tokens := make([]Token, 0, len(g.subs))
	for tok := range g.subs {
		tokens = append(tokens, tok)
	}
	g.mu.Unlock()

	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })

	for _, tok := range tokens {
		g.mu.Lock()
		handler, ok := g.subs[tok]
		g.mu.Unlock()
		if ok {
			handler(identity)
		}
	}
}

func toAuthError(err error) *domain.AuthError {
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.NewAuthError(CodeCancelled, err.Error())
	}
	return domain.NewAuthError(CodeInternal, err.Error())
}
