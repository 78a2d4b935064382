package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"family-doctor/pkg/config"
)

var ErrPublisherClosed = errors.New("publisher is closed")

type EventType string

const (
	AnswerPending  EventType = "answer.pending"
	AnswerPromoted EventType = "answer.promoted"
)

// ReviewEvent tells the review surface that an answer is waiting for a
// clinician or has just been promoted.
type ReviewEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Fingerprint string    `json:"symptoms_hash"`
	ReviewerID  int64     `json:"doctor_id,omitempty"`
	Edited      bool      `json:"edited,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func NewReviewEvent(eventType EventType, fingerprint string) ReviewEvent {
	return ReviewEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		Fingerprint: fingerprint,
		OccurredAt:  time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event ReviewEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer messageWriter
	logger *zap.Logger
	mu     sync.Mutex
	closed bool
}

// NewPublisher returns a Kafka-backed publisher, or one that drops events
// when no brokers are configured.
func NewPublisher(cfg config.KafkaConfig, logger *zap.Logger) Publisher {
	if len(cfg.Brokers) == 0 {
		logger.Info("No Kafka brokers configured, review events are disabled")
		return nopPublisher{}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		Compression:  kafka.Gzip,
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}

	logger.Info("Review events enabled",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)
	return newKafkaPublisher(writer, logger)
}

func newKafkaPublisher(writer messageWriter, logger *zap.Logger) *kafkaPublisher {
	return &kafkaPublisher{writer: writer, logger: logger}
}

// Publish keys messages by fingerprint so events for one query stay ordered.
func (p *kafkaPublisher) Publish(ctx context.Context, event ReviewEvent) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPublisherClosed
	}
	p.mu.Unlock()

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal review event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.Fingerprint),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	return p.writer.Close()
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ReviewEvent) error { return nil }
func (nopPublisher) Close() error                               { return nil }
