// Package events publishes committed ledger changes to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

const publishTimeout = 5 * time.Second

// Publisher sends transaction events to a topic exchange, routed by event kind.
type Publisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string

	// channels are not safe for concurrent publishing
	mu sync.Mutex
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing amqp: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	p := &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
	}

	err = channel.ExchangeDeclare(
		exchange,
		amqp091.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}

	return p, nil
}

func (p *Publisher) Publish(ctx context.Context, ev transaction.Event) error {
	body, err := json.Marshal(newMessage(ev))
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		string(ev.Kind),
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    ev.OccurredAt,
			MessageId:    ev.Transaction.ID.String(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publishing %s: %w", ev.Kind, err)
	}

	slog.DebugContext(ctx, "event published",
		"kind", ev.Kind,
		"transaction_id", ev.Transaction.ID,
		"exchange", p.exchange,
	)

	return nil
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}

	if p.conn != nil {
		return p.conn.Close()
	}

	return nil
}
