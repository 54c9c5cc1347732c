// AngelaMos | 2026
// factory.go

package notify

import (
	"fmt"
	"io"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/carterperez-dev/templates/tenant-backend/internal/config"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// FromConfig builds the notifier selected by mail.transport. The returned
// closer releases the transport's connections.
func FromConfig(
	mailCfg config.MailConfig,
	brokerCfg config.BrokerConfig,
	logger *slog.Logger,
) (Notifier, io.Closer, error) {
	switch mailCfg.Transport {
	case config.MailTransportSMTP:
		sender, err := NewSMTPSender(mailCfg.SMTP, mailCfg.From)
		if err != nil {
			return nil, nil, err
		}
		return sender, sender, nil

	case config.MailTransportQueue:
		conn, err := amqp.Dial(brokerCfg.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to broker: %w", err)
		}
		ch, err := DeclareQueue(conn, brokerCfg.Queue)
		if err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		publisher := NewQueuePublisher(ch, brokerCfg.Queue, brokerCfg.PublishTimeout)
		return publisher, closerFunc(func() error {
			_ = publisher.Close()
			return conn.Close()
		}), nil

	default:
		return NewLogNotifier(logger), closerFunc(func() error { return nil }), nil
	}
}
