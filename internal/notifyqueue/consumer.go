// Package notifyqueue ingests notifications produced by the external content
// generator from a durable RabbitMQ queue.
package notifyqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gamecatalog/visibility-backend/internal/apperr"
	"github.com/gamecatalog/visibility-backend/internal/models"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	prefetch      = 16
	handleTimeout = 15 * time.Second
)

// Message is the queue payload.
type Message struct {
	UserID  uuid.UUID `json:"userId"`
	Content string    `json:"content"`
}

type Ingestor interface {
	Create(ctx context.Context, userID uuid.UUID, content string) (*models.Notification, error)
}

type Consumer struct {
	url      string
	queue    string
	ingestor Ingestor
}

func NewConsumer(url, queue string, ingestor Ingestor) *Consumer {
	return &Consumer{url: url, queue: queue, ingestor: ingestor}
}

// Run consumes until ctx is cancelled or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	slog.Info("notification consumer listening", "queue", c.queue)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.process(ctx, msg)
		}
	}
}

// process acks stored notifications, drops payloads that can never succeed
// and requeues on storage failure.
func (c *Consumer) process(ctx context.Context, msg amqp.Delivery) {
	var m Message
	if err := json.Unmarshal(msg.Body, &m); err != nil {
		slog.Warn("bad notification message", "error", err.Error())
		_ = msg.Nack(false, false)
		return
	}

	hctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	n, err := c.ingestor.Create(hctx, m.UserID, m.Content)
	switch {
	case err == nil:
		slog.Info("notification ingested", "user_id", m.UserID.String(), "notification_id", n.ID.String())
		_ = msg.Ack(false)
	case errors.Is(err, apperr.ErrValidation):
		slog.Warn("notification rejected", "user_id", m.UserID.String(), "error", err.Error())
		_ = msg.Nack(false, false)
	default:
		slog.Error("notification ingest failed", "user_id", m.UserID.String(), "error", err.Error())
		_ = msg.Nack(false, true)
	}
}
