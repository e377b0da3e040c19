package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/czczc/inspire-papers-viewer/internal/domain"
	"github.com/czczc/inspire-papers-viewer/internal/session"
)

// writeGuard gates mutations on a signed-in identity. It follows the session
// through a subscription and signs in interactively when nobody is signed in.
type writeGuard struct {
	sessions *session.Gateway
	token    session.Token
	notice   io.Writer

	mu       sync.Mutex
	identity *domain.Identity
}

func newWriteGuard(sessions *session.Gateway, notice io.Writer) *writeGuard {
	g := &writeGuard{sessions: sessions, notice: notice}
	g.token = sessions.Subscribe(g.onChange)
	return g
}

func (g *writeGuard) onChange(identity *domain.Identity) {
	g.mu.Lock()
	g.identity = identity
	g.mu.Unlock()
}

// Require returns the signed-in identity, signing in first if needed.
func (g *writeGuard) Require(ctx context.Context) (*domain.Identity, error) {
	g.mu.Lock()
	identity := g.identity
	g.mu.Unlock()
	if identity != nil {
		return identity, nil
	}

	fmt.Fprintln(g.notice, "Sign-in required, opening the identity provider...")
	return g.sessions.SignIn(ctx)
}

// Close stops following the session.
func (g *writeGuard) Close() {
	g.sessions.Unsubscribe(g.token)
}
