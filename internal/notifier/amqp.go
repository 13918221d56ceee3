package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// publisher is satisfied by *amqp.Channel.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Message is the JSON payload published for the mail worker.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// AMQP hands messages to a durable queue consumed by a separate mail worker.
// Deliver reports success once the broker accepted the message.
type AMQP struct {
	conn    *amqp.Connection
	channel publisher
	closeCh func() error
	queue   string
	log     zerolog.Logger
}

// DialAMQP connects to the broker and declares the durable queue.
func DialAMQP(url, queue string, log zerolog.Logger) (*AMQP, error) {
	const op = "notifier.DialAMQP"

	if queue == "" {
		return nil, fmt.Errorf("%s: queue name is required", op)
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &AMQP{
		conn:    conn,
		channel: ch,
		closeCh: ch.Close,
		queue:   queue,
		log:     log,
	}, nil
}

func (a *AMQP) Deliver(ctx context.Context, recipient, subject, body string) bool {
	payload, err := json.Marshal(Message{To: recipient, Subject: subject, Body: body})
	if err != nil {
		a.log.Error().Err(err).Msg("failed to encode message")
		return false
	}

	err = a.channel.PublishWithContext(ctx, "", a.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         payload,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
	if err != nil {
		a.log.Error().Err(err).Str("to", recipient).Str("queue", a.queue).Msg("failed to publish message")
		return false
	}
	a.log.Info().Str("to", recipient).Str("queue", a.queue).Msg("message queued")
	return true
}

func (a *AMQP) Close() error {
	if a.closeCh != nil {
		_ = a.closeCh()
	}
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}
