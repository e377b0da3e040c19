package httpserver

import (
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/czczc/inspire-papers-viewer/internal/session"
)

const (
	sessionCookieName = "inspire_papers_session"
	stateCookieName   = "inspire_papers_oauth_state"
	stateCookiePath   = "/auth"
)

func (s *Server) authEnabled() bool {
	return s.auth != nil && s.tokens != nil
}

// login handles GET /auth/login by redirecting to the identity provider.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if !s.authEnabled() {
		writeError(w, http.StatusServiceUnavailable, "sign-in is not configured")
		return
	}

	state := oauth2.GenerateVerifier()
	verifier := oauth2.GenerateVerifier()
	stateToken, err := s.tokens.IssueState(state, verifier)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to issue oauth state")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.setCookie(w, stateCookieName, stateToken, stateCookiePath, session.DefaultStateTTL)
	http.Redirect(w, r, s.auth.AuthCodeURL(state, verifier, s.redirectURL), http.StatusFound)
}

// callback handles GET /auth/callback: it exchanges the code, sets the
// session cookie and redirects to the application root.
func (s *Server) callback(w http.ResponseWriter, r *http.Request) {
	if !s.authEnabled() {
		writeError(w, http.StatusServiceUnavailable, "sign-in is not configured")
		return
	}

	q := r.URL.Query()
	var expectedState, verifier string
	if cookie, err := r.Cookie(stateCookieName); err == nil {
		if v, err := s.tokens.VerifyState(cookie.Value, q.Get("state")); err == nil {
			expectedState, verifier = q.Get("state"), v
		}
	}
	s.clearCookie(w, stateCookieName, stateCookiePath)

	code, err := session.ParseCallback(q, expectedState)
	if err != nil {
		s.metrics.RecordSessionTransition(session.TransitionSignInFailed)
		writeDomainError(w, err)
		return
	}

	identity, err := s.auth.Complete(r.Context(), code, verifier, s.redirectURL)
	if err != nil {
		s.metrics.RecordSessionTransition(session.TransitionSignInFailed)
		s.logger.Warn().Err(err).Msg("sign-in failed")
		writeDomainError(w, err)
		return
	}

	token, err := s.tokens.Issue(identity)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to issue session token")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.setCookie(w, sessionCookieName, token, "/", s.tokens.TTL())
	s.metrics.RecordSessionTransition(session.TransitionSignedIn)
	s.logger.Info().Str("user_id", identity.UserID).Msg("user signed in")
	http.Redirect(w, r, "/", http.StatusFound)
}

// logout handles POST /auth/logout.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if identityFromContext(r.Context()) != nil {
		s.metrics.RecordSessionTransition(session.TransitionSignedOut)
	}
	s.clearCookie(w, sessionCookieName, "/")
	w.WriteHeader(http.StatusNoContent)
}

// currentSession handles GET /auth/session. The body is the identity or null.
func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, identityFromContext(r.Context()))
}

func (s *Server) setCookie(w http.ResponseWriter, name, value, path string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
