// AngelaMos | 2026
// worker.go

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Worker drains the mail queue into a Notifier. Undecodable messages are
// dropped; delivery failures are requeued.
type Worker struct {
	sender Notifier
	logger *slog.Logger
}

func NewWorker(sender Notifier, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{sender: sender, logger: logger}
}

// Consume registers a manual-ack consumer on queue.
func Consume(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", queue, err)
	}
	return deliveries, nil
}

// Run handles deliveries until ctx is done or the channel closes.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		w.logger.Error("drop undecodable mail message", "error", err)
		w.nack(d, false)
		return
	}

	if err := msg.Validate(); err != nil {
		w.logger.Error("drop invalid mail message",
			"kind", msg.Kind,
			"error", err,
		)
		w.nack(d, false)
		return
	}

	if err := w.sender.Send(ctx, msg); err != nil {
		w.logger.Error("mail delivery failed, requeueing",
			"kind", msg.Kind,
			"to", msg.To,
			"error", err,
		)
		w.nack(d, true)
		return
	}

	if err := d.Ack(false); err != nil {
		w.logger.Warn("ack mail message", "error", err)
		return
	}
	w.logger.Info("mail delivered", "kind", msg.Kind, "to", msg.To)
}

func (w *Worker) nack(d amqp.Delivery, requeue bool) {
	if err := d.Nack(false, requeue); err != nil {
		w.logger.Warn("nack mail message", "error", err)
	}
}
