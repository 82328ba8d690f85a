package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/models"
)

// Envelope is the Kafka message value for a published task.
type Envelope struct {
	ID       string          `json:"id"`
	Kind     string          `json:"kind"`
	Attempts int             `json:"attempts"`
	Payload  json.RawMessage `json:"payload"`
}

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher executes tasks by handing them to Kafka. The relay marks a task done once the
// broker accepted it; the consumer reports execution failures back to the store.
type Publisher struct {
	writer MessageWriter
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}}
}

func (p *Publisher) Execute(ctx context.Context, task models.OutboxTask) error {
	value, err := json.Marshal(Envelope{ID: task.ID, Kind: task.Kind, Attempts: task.Attempts, Payload: task.Payload.V})
	if err != nil {
		return fmt.Errorf("encode task envelope: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(task.Kind)},
		},
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer executes tasks published by the relay.
type Consumer struct {
	reader      MessageReader
	exec        Executor
	store       Store
	log         *zap.Logger
	maxAttempts int
	now         func() time.Time
}

func NewConsumer(brokers []string, topic, groupID string, exec Executor, store Store, log *zap.Logger, maxAttempts int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: r, exec: exec, store: store, log: log, maxAttempts: maxAttempts, now: time.Now}
}

// Start consumes until ctx is cancelled. Every message is committed once handled; a failed
// task goes back to the outbox table for another publish.
func (c *Consumer) Start(ctx context.Context) {
	c.log.Info("kafka consumer started")
	defer c.reader.Close()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("kafka consumer stopped")
				return
			}
			c.log.Error("could not fetch message", zap.Error(err))
			continue
		}

		c.Handle(ctx, m)

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.log.Error("could not commit message", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

// Handle decodes and executes one message.
func (c *Consumer) Handle(ctx context.Context, m kafka.Message) {
	var env Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		c.log.Error("could not decode task envelope", zap.Int64("offset", m.Offset), zap.ByteString("value", m.Value), zap.Error(err))
		return
	}

	task := models.OutboxTask{
		ID:       env.ID,
		Kind:     env.Kind,
		Attempts: env.Attempts,
		Payload:  models.JSON[json.RawMessage]{V: env.Payload},
	}
	log := c.log.With(zap.String("task_id", task.ID), zap.String("kind", task.Kind), zap.Int("attempt", task.Attempts))

	if err := c.exec.Execute(ctx, task); err != nil {
		Settle(ctx, c.store, log, task, err, c.maxAttempts, c.now())
		return
	}
	log.Info("task executed")
}
