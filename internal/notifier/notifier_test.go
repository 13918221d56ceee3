package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/yourusername/animemaster-api/internal/config"
)

type mockEmailSender struct {
	mock.Mock
}

func (m *mockEmailSender) SendWithOptions(ctx context.Context, params *resend.SendEmailRequest, options *resend.SendEmailOptions) (*resend.SendEmailResponse, error) {
	args := m.Called(ctx, params, options)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resend.SendEmailResponse), args.Error(1)
}

type fakeSMTP struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSMTP) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

type fakePublisher struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func TestNew_Drivers(t *testing.T) {
	n, closer, err := New(config.NotifierConfig{Driver: ""}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &Noop{}, n)
	assert.NoError(t, closer.Close())

	_, _, err = New(config.NotifierConfig{Driver: "pigeon"}, zerolog.Nop())
	assert.Error(t, err)

	_, _, err = New(config.NotifierConfig{Driver: "resend"}, zerolog.Nop())
	assert.Error(t, err, "resend without api key")

	n, _, err = New(config.NotifierConfig{
		Driver: "SMTP",
		From:   "noreply@example.com",
		SMTP:   config.SMTPConfig{Host: "localhost", Port: 1025},
	}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &SMTP{}, n)
}

func TestFormatFrom(t *testing.T) {
	assert.Equal(t, "AnimeMaster <noreply@example.com>", formatFrom("noreply@example.com", "AnimeMaster"))
	assert.Equal(t, "noreply@example.com", formatFrom("noreply@example.com", ""))
	assert.Equal(t, "X <a@b.c>", formatFrom("X <a@b.c>", "AnimeMaster"))
}

func TestNoop_AlwaysDelivers(t *testing.T) {
	assert.True(t, NewNoop(zerolog.Nop()).Deliver(context.Background(), "a@example.com", "s", "b"))
}

func TestSMTP_Deliver(t *testing.T) {
	sender := &fakeSMTP{}
	n := &SMTP{from: "noreply@example.com", sender: sender, log: zerolog.Nop()}

	assert.True(t, n.Deliver(context.Background(), "a@example.com", "Subject", "Body"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"a@example.com"}, sender.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Subject"}, sender.sent[0].GetHeader("Subject"))

	sender.err = errors.New("connection refused")
	assert.False(t, n.Deliver(context.Background(), "a@example.com", "Subject", "Body"))
}

func TestAMQP_Deliver(t *testing.T) {
	pub := &fakePublisher{}
	n := &AMQP{channel: pub, queue: "mail", log: zerolog.Nop()}

	assert.True(t, n.Deliver(context.Background(), "a@example.com", "Subject", "Body"))
	assert.Equal(t, "", pub.exchange)
	assert.Equal(t, "mail", pub.key)
	assert.Equal(t, amqp.Persistent, pub.msg.DeliveryMode)

	var msg Message
	require.NoError(t, json.Unmarshal(pub.msg.Body, &msg))
	assert.Equal(t, Message{To: "a@example.com", Subject: "Subject", Body: "Body"}, msg)

	pub.err = errors.New("channel closed")
	assert.False(t, n.Deliver(context.Background(), "a@example.com", "Subject", "Body"))
	assert.NoError(t, n.Close())
}

func newTestResend(sender emailSender) *Resend {
	return &Resend{
		from:   "noreply@example.com",
		emails: sender,
		log:    zerolog.Nop(),
		sleep:  func(context.Context, time.Duration) error { return nil },
	}
}

func TestResend_Deliver(t *testing.T) {
	sender := new(mockEmailSender)
	sender.On("SendWithOptions", mock.Anything, mock.MatchedBy(func(p *resend.SendEmailRequest) bool {
		return p.Subject == "Subject" && p.Text == "line1\nline2" && p.Html == "<p>line1<br>line2</p>"
	}), mock.Anything).Return(&resend.SendEmailResponse{Id: "1"}, nil).Once()

	assert.True(t, newTestResend(sender).Deliver(context.Background(), "a@example.com", "Subject", "line1\nline2"))
	sender.AssertExpectations(t)
}

func TestResend_RetriesTransientErrors(t *testing.T) {
	sender := new(mockEmailSender)
	sender.On("SendWithOptions", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("i/o timeout")).Twice()
	sender.On("SendWithOptions", mock.Anything, mock.Anything, mock.Anything).Return(&resend.SendEmailResponse{}, nil).Once()

	assert.True(t, newTestResend(sender).Deliver(context.Background(), "a@example.com", "s", "b"))
	sender.AssertNumberOfCalls(t, "SendWithOptions", 3)
}

func TestResend_PermanentErrorNotRetried(t *testing.T) {
	sender := new(mockEmailSender)
	sender.On("SendWithOptions", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("invalid api key"))

	assert.False(t, newTestResend(sender).Deliver(context.Background(), "a@example.com", "s", "b"))
	sender.AssertNumberOfCalls(t, "SendWithOptions", 1)
}

func TestResendRetryDelay(t *testing.T) {
	wait, ok := resendRetryDelay(&resend.RateLimitError{RetryAfter: "120"}, 0)
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, wait)

	wait, ok = resendRetryDelay(&resend.RateLimitError{}, 1)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, wait)

	_, ok = resendRetryDelay(errors.New("bad request"), 0)
	assert.False(t, ok)
}
