// Package events publishes small paper change events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/czczc/inspire-papers-viewer/internal/observability"
)

// Event types.
const (
	TypeSmallPaperAdded   = "small_paper.added"
	TypeSmallPaperUpdated = "small_paper.updated"
	TypeSmallPaperDeleted = "small_paper.deleted"
)

// Event describes one change to the small paper catalog.
type Event struct {
	Type       string    `json:"type"`
	PaperID    string    `json:"paper_id"`
	ArxivID    string    `json:"arxiv_id,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Validate checks the fields every consumer relies on.
func (e Event) Validate() error {
	if e.Type == "" {
		return errors.New("event type is required")
	}
	if e.PaperID == "" {
		return errors.New("paper_id is required")
	}
	return nil
}

// Publisher delivers change events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }

// messageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the Kafka topic events are written to.
	Topic string
	// BatchTimeout is the maximum time a message waits for its batch to fill.
	BatchTimeout time.Duration
	// WriteTimeout bounds a single publish.
	WriteTimeout time.Duration
}

// KafkaPublisher writes events as JSON messages keyed by paper id.
type KafkaPublisher struct {
	writer       messageWriter
	writeTimeout time.Duration
	metrics      *observability.Metrics
	logger       zerolog.Logger
	now          func() time.Time
}

// NewKafkaPublisher creates a publisher backed by a kafka.Writer.
func NewKafkaPublisher(cfg Config, logger zerolog.Logger, metrics *observability.Metrics) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("topic is required")
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}

	return newKafkaPublisher(writer, cfg.WriteTimeout, logger, metrics), nil
}

func newKafkaPublisher(w messageWriter, writeTimeout time.Duration, logger zerolog.Logger, metrics *observability.Metrics) *KafkaPublisher {
	if writeTimeout == 0 {
		writeTimeout = 5 * time.Second
	}
	return &KafkaPublisher{
		writer:       w,
		writeTimeout: writeTimeout,
		metrics:      metrics,
		logger:       logger.With().Str("component", "event_publisher").Logger(),
		now:          time.Now,
	}
}

// Publish writes one event. OccurredAt is stamped when zero.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PaperID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		p.metrics.RecordEventFailed(event.Type)
		return fmt.Errorf("write event: %w", err)
	}

	p.metrics.RecordEventPublished(event.Type)
	p.logger.Debug().
		Str("event_type", event.Type).
		Str("paper_id", event.PaperID).
		Msg("published change event")
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.logger.Info().Msg("closing event publisher")
	return p.writer.Close()
}
