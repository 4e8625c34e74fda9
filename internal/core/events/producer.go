package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Melaeke/omim/internal/core/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Event is an analytics record: a name plus string parameters.
type Event struct {
	Name string `json:"name"`
	// Key partitions the event stream; the banner type for banner events.
	Key       string            `json:"-"`
	Params    map[string]string `json:"params,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Publisher delivers analytics events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// WriterInterface is the subset of *kafka.Writer the producer needs.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes events to Kafka as JSON.
type Producer struct {
	writer WriterInterface
}

var _ Publisher = (*Producer)(nil)

// NewProducer wraps an existing writer.
func NewProducer(writer WriterInterface) *Producer {
	return &Producer{writer: writer}
}

// NewKafkaProducer builds a kafka-go writer for a comma separated broker list.
func NewKafkaProducer(brokers, topic string) *Producer {
	return NewProducer(&kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Get().Warn("Failed to deliver analytics events",
					zap.Int("count", len(messages)),
					zap.Error(err),
				)
			}
		},
	})
}

// Publish encodes the event and writes it with its key.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key),
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// LogPublisher is used when no brokers are configured; it only logs.
type LogPublisher struct{}

var _ Publisher = LogPublisher{}

// Publish logs the event at debug level.
func (LogPublisher) Publish(_ context.Context, event Event) error {
	logger.Get().Debug("Analytics event",
		zap.String("name", event.Name),
		zap.String("key", event.Key),
		zap.Any("params", event.Params),
	)
	return nil
}

// Close is a no-op.
func (LogPublisher) Close() error {
	return nil
}
