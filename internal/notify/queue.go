// AngelaMos | 2026
// queue.go

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const DefaultQueue = "email_queue"

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(
		ctx context.Context,
		exchange, key string,
		mandatory, immediate bool,
		msg amqp.Publishing,
	) error
	Close() error
}

// QueuePublisher hands messages to the mail worker through a durable
// RabbitMQ queue.
type QueuePublisher struct {
	ch      channel
	queue   string
	timeout time.Duration
}

// DeclareQueue opens a channel on conn and declares the durable mail queue.
func DeclareQueue(conn *amqp.Connection, queue string) (*amqp.Channel, error) {
	if queue == "" {
		queue = DefaultQueue
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return ch, nil
}

func NewQueuePublisher(ch channel, queue string, timeout time.Duration) *QueuePublisher {
	if queue == "" {
		queue = DefaultQueue
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &QueuePublisher{ch: ch, queue: queue, timeout: timeout}
}

func (p *QueuePublisher) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, "", p.queue, true, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Type:         string(msg.Kind),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.Kind, err)
	}
	return nil
}

func (p *QueuePublisher) Close() error {
	return p.ch.Close()
}
