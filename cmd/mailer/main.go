// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/carterperez-dev/templates/tenant-backend/internal/config"
	"github.com/carterperez-dev/templates/tenant-backend/internal/notify"
)

// The mailer drains the broker queue filled by the API's queue transport
// and delivers each message over SMTP.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("mailer error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if cfg.Broker.URL == "" {
		return fmt.Errorf("RABBITMQ_URL is required")
	}
	if cfg.Mail.SMTP.Host == "" {
		return fmt.Errorf("SMTP_HOST is required")
	}

	sender, err := notify.NewSMTPSender(cfg.Mail.SMTP, cfg.Mail.From)
	if err != nil {
		return err
	}
	defer sender.Close()

	conn, err := amqp.Dial(cfg.Broker.URL)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer conn.Close()

	ch, err := notify.DeclareQueue(conn, cfg.Broker.Queue)
	if err != nil {
		return err
	}
	defer ch.Close()

	deliveries, err := notify.Consume(ch, cfg.Broker.Queue)
	if err != nil {
		return err
	}

	logger.Info("mailer started",
		"queue", cfg.Broker.Queue,
		"smtp_host", cfg.Mail.SMTP.Host,
	)

	err = notify.NewWorker(sender, logger).Run(ctx, deliveries)
	logger.Info("mailer stopped")
	return err
}
