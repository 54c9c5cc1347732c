// AngelaMos | 2026
// notify_test.go

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/tenant-backend/internal/config"
)

func resetMessage() Message {
	return Message{
		Kind: KindPasswordReset,
		To:   "j@acme.com",
		Data: map[string]string{"name": "J Doe", "otp": "A1B2C3", "ttl": "1h0m0s"},
	}
}

func TestRender(t *testing.T) {
	subject, body, err := Render(resetMessage())
	require.NoError(t, err)

	assert.Equal(t, "Password reset code", subject)
	assert.Contains(t, body, "Hello J Doe")
	assert.Contains(t, body, "A1B2C3")
}

func TestMessageValidate(t *testing.T) {
	assert.Error(t, Message{Kind: KindStaffWelcome}.Validate())
	assert.ErrorIs(t, Message{Kind: "nope", To: "a@b.c"}.Validate(), ErrUnknownKind)
	assert.NoError(t, resetMessage().Validate())
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, n.Send(context.Background(), resetMessage()))
	assert.Contains(t, buf.String(), `"to":"j@acme.com"`)
	assert.Contains(t, buf.String(), "A1B2C3")
}

func TestSMTPSender_Build(t *testing.T) {
	s, err := NewSMTPSender(config.SMTPConfig{Host: "localhost", Port: 1025}, "noreply@tenant.local")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	m, err := s.build(resetMessage())
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Subject: Password reset code")
	assert.Contains(t, buf.String(), "A1B2C3")

	_, err = s.build(Message{Kind: KindPasswordReset})
	assert.Error(t, err)
}

type fakeChannel struct {
	published []amqp.Publishing
	keys      []string
	err       error
}

func (c *fakeChannel) PublishWithContext(
	_ context.Context,
	_, key string,
	_, _ bool,
	msg amqp.Publishing,
) error {
	if c.err != nil {
		return c.err
	}
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Close() error { return nil }

func TestQueuePublisher_Send(t *testing.T) {
	ch := &fakeChannel{}
	p := NewQueuePublisher(ch, "", 0)

	require.NoError(t, p.Send(context.Background(), resetMessage()))
	require.Len(t, ch.published, 1)
	assert.Equal(t, DefaultQueue, ch.keys[0])
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)

	var decoded Message
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &decoded))
	assert.Equal(t, resetMessage(), decoded)

	ch.err = errors.New("channel closed")
	assert.Error(t, p.Send(context.Background(), resetMessage()))
}

type ackRecorder struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acked++; return nil }

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *ackRecorder) Reject(uint64, bool) error { return nil }

type stubNotifier struct {
	sent []Message
	err  error
}

func (s *stubNotifier) Send(_ context.Context, msg Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func delivery(t *testing.T, ack *ackRecorder, body any) amqp.Delivery {
	t.Helper()
	raw, ok := body.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	return amqp.Delivery{Acknowledger: ack, Body: raw}
}

func TestWorker_Handle(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	t.Run("delivers and acks", func(t *testing.T) {
		sender := &stubNotifier{}
		ack := &ackRecorder{}
		NewWorker(sender, logger).handle(context.Background(), delivery(t, ack, resetMessage()))

		assert.Equal(t, 1, ack.acked)
		assert.Len(t, sender.sent, 1)
	})

	t.Run("drops garbage", func(t *testing.T) {
		ack := &ackRecorder{}
		NewWorker(&stubNotifier{}, logger).handle(context.Background(), delivery(t, ack, []byte("{")))

		assert.Equal(t, 1, ack.nacked)
		assert.False(t, ack.requeue)
	})

	t.Run("requeues on send failure", func(t *testing.T) {
		ack := &ackRecorder{}
		sender := &stubNotifier{err: errors.New("smtp down")}
		NewWorker(sender, logger).handle(context.Background(), delivery(t, ack, resetMessage()))

		assert.Equal(t, 1, ack.nacked)
		assert.True(t, ack.requeue)
	})
}

func TestFromConfig_DefaultsToLog(t *testing.T) {
	n, closer, err := FromConfig(config.MailConfig{Transport: config.MailTransportLog}, config.BrokerConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LogNotifier{}, n)
	assert.NoError(t, closer.Close())
}
