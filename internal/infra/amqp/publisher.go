// Package amqp publishes attempt lifecycle events to a topic exchange.
package amqp

import (
	"context"
	"log"
	"sync"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	streadway "github.com/streadway/amqp"

	"quiz-player/internal/app"
)

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg streadway.Publishing) error
	Close() error
}

// Publisher implements app.EventPublisher. The event type is the routing key.
type Publisher struct {
	conn     *streadway.Connection
	exchange string

	mu sync.Mutex
	ch channel
}

// Dial connects to the broker and declares a durable topic exchange.
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := streadway.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial amqp")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrapf(err, "declare exchange %s", exchange)
	}
	return &Publisher{conn: conn, exchange: exchange, ch: ch}, nil
}

func newPublisher(ch channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

func (p *Publisher) Publish(_ context.Context, event app.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}

	// amqp.Channel is not safe for concurrent publishes.
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.Publish(
		p.exchange,
		event.Type,
		false,
		false,
		streadway.Publishing{
			ContentType:  "application/json",
			DeliveryMode: streadway.Persistent,
			MessageId:    event.SubmissionID + ":" + event.Type,
			Timestamp:    event.At,
			Body:         body,
		},
	)
	if err != nil {
		return errors.Wrapf(err, "publish %s", event.Type)
	}
	log.Printf("[event] %s submission=%s published to %s", event.Type, event.SubmissionID, p.exchange)
	return nil
}

// Close releases the channel and the connection.
func (p *Publisher) Close() error {
	var result *multierror.Error
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "close channel"))
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "close connection"))
		}
	}
	return result.ErrorOrNil()
}
