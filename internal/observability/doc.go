// Package observability provides logging, metrics, and context helpers for
// the INSPIRE papers catalog.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for the small paper gateway, literature searches, sessions and the HTTP API
//   - Context helpers for propagating request metadata
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger = observability.WithComponent(logger, "smallpapers")
//
// # Metrics
//
//	metrics := observability.NewMetrics("inspire_papers")
//	metrics.RecordGatewayOperation("list", elapsed.Seconds())
//
// A nil *Metrics may be passed wherever metrics are optional.
//
// # Context Helpers
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	ctx = observability.WithCorrelationID(ctx, correlationID)
//	logger = observability.WithRequestContext(ctx, logger)
//
// # Standard Fields
//
//   - component: emitting component (smallpapers, session, inspire, http)
//   - operation: gateway operation (list, find, insert, update, delete)
//   - paper_id, arxiv_id: small paper identifiers
//   - record_id: INSPIRE literature record identifier
//   - request_id, correlation_id, user_id: request metadata
package observability
