package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"hospiq/pkg/logger"
)

// Header keys shared by all consumers of the ticket stream.
const (
	HeaderEventID   = "event-id"
	HeaderEventType = "event-type"
	HeaderSource    = "source"
	HeaderTimestamp = "timestamp"
)

// Producer publishes ticket lifecycle events. A nil Producer is a
// valid no-op so services run unchanged without Kafka configured.
type Producer struct {
	writer *kafka.Writer
	source string
	log    *logger.Logger
	closed bool
	mu     sync.Mutex
}

func NewProducer(brokers []string, topic, source string, log *logger.Logger) *Producer {
	if len(brokers) == 0 {
		log.Info("Kafka brokers not configured, event publishing disabled")
		return nil
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // hash by key keeps per-ticket ordering
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		BatchTimeout: 10 * time.Millisecond,
	}

	log.Info("Kafka producer initialized", "topic", topic, "brokers", brokers)

	return &Producer{
		writer: writer,
		source: source,
		log:    log,
	}
}

// Publish sends a JSON-encoded event keyed by the given key. Errors are
// returned for logging but callers treat publishing as best-effort.
func (p *Producer) Publish(ctx context.Context, key, eventType string, payload any) error {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("producer is closed")
	}
	p.mu.Unlock()

	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte(uuid.NewString())},
			{Key: HeaderEventType, Value: []byte(eventType)},
			{Key: HeaderSource, Value: []byte(p.source)},
			{Key: HeaderTimestamp, Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	return nil
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}
