// AngelaMos | 2026
// notify.go

package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Kind selects the template a message is rendered with.
type Kind string

const (
	KindPasswordReset      Kind = "password_reset"
	KindContactProvisioned Kind = "contact_provisioned"
	KindStaffWelcome       Kind = "staff_welcome"
)

var ErrUnknownKind = errors.New("unknown message kind")

// Message is the transport-neutral notification. It is also the JSON body
// published to the mail queue.
type Message struct {
	Kind Kind              `json:"kind"`
	To   string            `json:"to"`
	Data map[string]string `json:"data,omitempty"`
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("message %s: missing recipient", m.Kind)
	}
	if _, ok := templates[m.Kind]; !ok {
		return fmt.Errorf("message %q: %w", m.Kind, ErrUnknownKind)
	}
	return nil
}

// Notifier delivers a message or reports why it could not.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier renders messages into the log instead of delivering them.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	subject, body, err := Render(msg)
	if err != nil {
		return err
	}

	n.logger.InfoContext(ctx, "notification",
		"kind", msg.Kind,
		"to", msg.To,
		"subject", subject,
		"body", body,
	)
	return nil
}
