package amqpmail

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-partner-auth"
)

type stubChannel struct {
	publishErr error
	closed     bool

	publishes int
	exchange  string
	key       string
	last      amqp.Publishing
}

func (s *stubChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	s.publishes++
	s.exchange = exchange
	s.key = key
	s.last = msg
	return s.publishErr
}

func (s *stubChannel) IsClosed() bool { return s.closed }

func (s *stubChannel) Close() error {
	s.closed = true
	return nil
}

func TestSendPublishesPersistentJSON(t *testing.T) {
	ch := &stubChannel{}
	mailer := &Mailer{queue: DefaultQueue, ch: ch}

	msg := auth.MailMessage{
		Template:    "mail_reset_password",
		Kind:        auth.TemplateResetPassword,
		DirectoryID: uuid.New(),
		PartnerID:   uuid.New(),
		To:          "pepe.rone@example.com",
		Context:     map[string]any{"token": "tok-123"},
	}

	require.NoError(t, mailer.Send(context.Background(), msg))
	require.Equal(t, 1, ch.publishes)

	// default exchange, routed straight to the mail queue
	assert.Equal(t, "", ch.exchange)
	assert.Equal(t, DefaultQueue, ch.key)
	assert.Equal(t, "application/json", ch.last.ContentType)
	assert.Equal(t, amqp.Persistent, ch.last.DeliveryMode)
	assert.False(t, ch.last.Timestamp.IsZero())

	var decoded auth.MailMessage
	require.NoError(t, json.Unmarshal(ch.last.Body, &decoded))
	assert.Equal(t, msg.Template, decoded.Template)
	assert.Equal(t, msg.Kind, decoded.Kind)
	assert.Equal(t, msg.DirectoryID, decoded.DirectoryID)
	assert.Equal(t, msg.To, decoded.To)
	assert.Equal(t, "tok-123", decoded.Context["token"])
}

func TestSendHonorsQueueOverride(t *testing.T) {
	ch := &stubChannel{}
	mailer := &Mailer{queue: DefaultQueue, ch: ch}
	WithQueue("custom.mail")(mailer)

	require.NoError(t, mailer.Send(context.Background(), auth.MailMessage{To: "x@example.com"}))
	assert.Equal(t, "custom.mail", ch.key)
}

func TestSendWrapsPublishFailure(t *testing.T) {
	ch := &stubChannel{publishErr: errors.New("broker gone")}
	mailer := &Mailer{queue: DefaultQueue, ch: ch}

	err := mailer.Send(context.Background(), auth.MailMessage{To: "x@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish")
}

func TestCloseReleasesChannel(t *testing.T) {
	ch := &stubChannel{}
	mailer := &Mailer{queue: DefaultQueue, ch: ch}

	require.NoError(t, mailer.Close())
	assert.True(t, ch.closed)
	assert.Nil(t, mailer.ch)
}
