package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/czczc/inspire-papers-viewer/internal/domain"
	"github.com/czczc/inspire-papers-viewer/internal/observability"
)

type contextKey string

const ctxKeyIdentity contextKey = "identity"

// correlationIDMiddleware ensures every request has a correlation ID.
func correlationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = requestID
		}
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		w.Header().Set("X-Correlation-ID", correlationID)
		ctx := observability.WithCorrelationID(r.Context(), correlationID)
		if requestID != "" {
			ctx = observability.WithRequestID(ctx, requestID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogMiddleware logs each request and records it by chi route pattern.
func (s *Server) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		elapsed := time.Since(start)
		s.metrics.RecordHTTPRequest(r.Method, route, status, elapsed.Seconds())

		var event *zerolog.Event
		logger := observability.WithRequestContext(r.Context(), s.logger)
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		default:
			event = logger.Debug()
		}
		event.
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", elapsed).
			Msg("request served")
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// jsonContentTypeMiddleware sets Content-Type: application/json for all responses.
func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// sessionMiddleware attaches the identity carried by a valid session cookie.
// A missing or invalid cookie leaves the request signed out.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tokens == nil {
			next.ServeHTTP(w, r)
			return
		}
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		identity, err := s.tokens.Verify(cookie.Value)
		if err != nil {
			s.logger.Debug().Err(err).Msg("ignoring invalid session cookie")
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithIdentity(r.Context(), identity)))
	})
}

// requireIdentity refuses requests without a signed-in identity.
func requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identityFromContext(r.Context()) == nil {
			writeDomainError(w, domain.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func contextWithIdentity(ctx context.Context, identity *domain.Identity) context.Context {
	ctx = context.WithValue(ctx, ctxKeyIdentity, identity)
	return observability.WithUserID(ctx, identity.UserID)
}

// identityFromContext returns the signed-in identity, or nil.
func identityFromContext(ctx context.Context) *domain.Identity {
	if v, ok := ctx.Value(ctxKeyIdentity).(*domain.Identity); ok {
		return v
	}
	return nil
}
