// Package smallpapers is the gateway to the curated small paper collection.
//
// The Gateway validates caller input before any I/O, hides store failures
// behind fixed operation-specific messages and publishes a change event after
// every successful mutation.
package smallpapers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/czczc/inspire-papers-viewer/internal/domain"
	"github.com/czczc/inspire-papers-viewer/internal/events"
	"github.com/czczc/inspire-papers-viewer/internal/observability"
	"github.com/czczc/inspire-papers-viewer/internal/repository"
)

// Fixed caller-facing messages for store failures.
const (
	MsgListFailed   = "failed to fetch papers"
	MsgFindFailed   = "failed to search papers"
	MsgInsertFailed = "failed to add paper"
	MsgUpdateFailed = "failed to update paper"
	MsgDeleteFailed = "failed to delete paper"
)

const (
	opList   = "list"
	opFind   = "find"
	opInsert = "insert"
	opUpdate = "update"
	opDelete = "delete"
)

// Gateway lists and mutates small papers.
type Gateway struct {
	repo      repository.SmallPaperRepository
	validate  *validator.Validate
	publisher events.Publisher
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithMetrics records gateway metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithPublisher publishes change events after successful mutations.
func WithPublisher(p events.Publisher) Option {
	return func(g *Gateway) {
		if p != nil {
			g.publisher = p
		}
	}
}

// NewGateway creates a Gateway over repo.
func NewGateway(repo repository.SmallPaperRepository, logger zerolog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		repo:      repo,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		publisher: events.NopPublisher{},
		logger:    observability.WithComponent(logger, "smallpapers"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ListAll returns every small paper ordered by arxiv_id, newest first.
func (g *Gateway) ListAll(ctx context.Context) ([]*domain.SmallPaper, error) {
	start := time.Now()

	papers, err := g.repo.List(ctx)
	if err != nil {
		return nil, g.remoteFailure(ctx, opList, MsgListFailed, start, err)
	}

	g.metrics.RecordGatewayOperation(opList, time.Since(start).Seconds())
	return papers, nil
}

// ListByYear returns the small papers whose year equals year.
// year must parse as an integer; surrounding whitespace is ignored.
func (g *Gateway) ListByYear(ctx context.Context, year string) ([]*domain.SmallPaper, error) {
	start := time.Now()

	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return nil, g.invalid(opList, start, domain.NewValidationError("year", "must be an integer"))
	}

	papers, err := g.repo.ListByYear(ctx, y)
	if err != nil {
		return nil, g.remoteFailure(ctx, opList, MsgListFailed, start, err)
	}

	g.metrics.RecordGatewayOperation(opList, time.Since(start).Seconds())
	return papers, nil
}

// FindByArxivID returns the id of the first small paper with arxivID.
// found is false when there is no such paper.
func (g *Gateway) FindByArxivID(ctx context.Context, arxivID string) (id string, found bool, err error) {
	start := time.Now()

	arxivID = strings.TrimSpace(arxivID)
	if arxivID == "" {
		return "", false, g.invalid(opFind, start, domain.NewValidationError("arxiv_id", "is required"))
	}

	id, found, err = g.repo.FindIDByArxivID(ctx, arxivID)
	if err != nil {
		return "", false, g.remoteFailure(ctx, opFind, MsgFindFailed, start, err)
	}

	g.metrics.RecordGatewayOperation(opFind, time.Since(start).Seconds())
	return id, found, nil
}

// Insert stores a new small paper and returns its id.
func (g *Gateway) Insert(ctx context.Context, input domain.SmallPaperInput) (string, error) {
	start := time.Now()

	if err := g.validateInput(input); err != nil {
		return "", g.invalid(opInsert, start, err)
	}

	fields := input.ForInsert()
	paper, err := g.repo.Create(ctx, fields)
	if err != nil {
		return "", g.remoteFailure(ctx, opInsert, MsgInsertFailed, start, err)
	}

	g.metrics.RecordGatewayOperation(opInsert, time.Since(start).Seconds())
	logger := observability.WithPaperContext(g.logger, paper.ID, paper.ArxivID)
	logger.Info().
		Str("added_by", paper.AddedBy).
		Msg("small paper added")

	g.publish(ctx, events.Event{
		Type:    events.TypeSmallPaperAdded,
		PaperID: paper.ID,
		ArxivID: paper.ArxivID,
		Actor:   paper.AddedBy,
	})
	return paper.ID, nil
}

// Update merges the provided fields into the small paper with id.
// Optional fields left nil in input are not touched.
func (g *Gateway) Update(ctx context.Context, id string, input domain.SmallPaperInput) error {
	start := time.Now()

	id = strings.TrimSpace(id)
	if id == "" {
		return g.invalid(opUpdate, start, domain.NewValidationError("id", "is required"))
	}
	if err := g.validateInput(input); err != nil {
		return g.invalid(opUpdate, start, err)
	}

	fields := input.ForUpdate()
	if err := g.repo.Update(ctx, id, fields); err != nil {
		return g.remoteFailure(ctx, opUpdate, MsgUpdateFailed, start, err)
	}

	g.metrics.RecordGatewayOperation(opUpdate, time.Since(start).Seconds())
	logger := observability.WithPaperContext(g.logger, id, fields.ArxivID)
	logger.Info().Msg("small paper updated")

	actor := observability.UserIDFromContext(ctx)
	if fields.AddedBy != nil && *fields.AddedBy != "" {
		actor = *fields.AddedBy
	}
	g.publish(ctx, events.Event{
		Type:    events.TypeSmallPaperUpdated,
		PaperID: id,
		ArxivID: fields.ArxivID,
		Actor:   actor,
	})
	return nil
}

// Delete removes the small paper with id. Deleting a missing id succeeds.
func (g *Gateway) Delete(ctx context.Context, id string) error {
	start := time.Now()

	id = strings.TrimSpace(id)
	if id == "" {
		return g.invalid(opDelete, start, domain.NewValidationError("id", "is required"))
	}

	if err := g.repo.Delete(ctx, id); err != nil {
		return g.remoteFailure(ctx, opDelete, MsgDeleteFailed, start, err)
	}

	g.metrics.RecordGatewayOperation(opDelete, time.Since(start).Seconds())
	g.logger.Info().Str("paper_id", id).Msg("small paper deleted")

	g.publish(ctx, events.Event{
		Type:    events.TypeSmallPaperDeleted,
		PaperID: id,
		Actor:   observability.UserIDFromContext(ctx),
	})
	return nil
}

// validateInput checks presence of the required fields before trimming.
func (g *Gateway) validateInput(input domain.SmallPaperInput) error {
	err := g.validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return domain.NewValidationError(jsonFieldName(verrs[0].Field()), "is required")
	}
	return domain.NewValidationError("input", err.Error())
}

func (g *Gateway) invalid(op string, start time.Time, err error) error {
	g.metrics.RecordGatewayFailure(op, "invalid_argument", time.Since(start).Seconds())
	return err
}

// remoteFailure logs cause and returns the fixed message for op.
func (g *Gateway) remoteFailure(ctx context.Context, op, message string, start time.Time, cause error) error {
	g.metrics.RecordGatewayFailure(op, "remote", time.Since(start).Seconds())
	logger := observability.WithRequestContext(ctx, g.logger)
	logger.Error().Err(cause).Str("operation", op).Msg(message)
	return domain.NewRemoteError(op, message)
}

// publish never fails the calling operation.
func (g *Gateway) publish(ctx context.Context, event events.Event) {
	if err := g.publisher.Publish(ctx, event); err != nil {
		g.logger.Warn().Err(err).
			Str("event_type", event.Type).
			Str("paper_id", event.PaperID).
			Msg("failed to publish change event")
	}
}

func jsonFieldName(field string) string {
	switch field {
	case "ArxivID":
		return "arxiv_id"
	case "Title":
		return "title"
	default:
		return strings.ToLower(field)
	}
}
