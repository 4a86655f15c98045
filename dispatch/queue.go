package dispatch

import (
	"context"
	"fmt"

	"github.com/streadway/amqp"
)

// Queue carries order IDs from placement to the dispatch consumer.
// Requeued offer rounds go through the same queue.
type Queue interface {
	Enqueue(ctx context.Context, orderID string) error
	// Consume blocks, invoking handler for each queued order ID, until
	// the context is cancelled or the transport fails.
	Consume(ctx context.Context, handler func(orderID string)) error
}

// AMQPQueue is the RabbitMQ-backed queue used in production.
type AMQPQueue struct {
	conn *amqp.Connection
	name string
}

func NewAMQPQueue(conn *amqp.Connection, name string) (*AMQPQueue, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	defer ch.Close()
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", name, err)
	}
	return &AMQPQueue{conn: conn, name: name}, nil
}

// Enqueue opens a short-lived channel per publish; amqp channels are not
// safe for concurrent use.
func (q *AMQPQueue) Enqueue(_ context.Context, orderID string) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	return ch.Publish("", q.name, false, false, amqp.Publishing{
		ContentType: "text/plain",
		Body:        []byte(orderID),
	})
}

func (q *AMQPQueue) Consume(ctx context.Context, handler func(orderID string)) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	msgs, err := ch.Consume(q.name, "", true, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("dispatch queue %s closed", q.name)
			}
			handler(string(msg.Body))
		}
	}
}

// ChanQueue is an in-process Queue for tests and broker-less local runs.
type ChanQueue struct {
	ch chan string
}

func NewChanQueue(size int) *ChanQueue {
	return &ChanQueue{ch: make(chan string, size)}
}

func (q *ChanQueue) Enqueue(ctx context.Context, orderID string) error {
	select {
	case q.ch <- orderID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ChanQueue) Consume(ctx context.Context, handler func(orderID string)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case orderID := <-q.ch:
			handler(orderID)
		}
	}
}
