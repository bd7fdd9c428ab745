package queue

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tazhibayda/library-service/internal/log"
	"go.uber.org/zap"
)

const prefetch = 50

// Handler processes one delivered event. A returned error drops the message.
type Handler func(context.Context, Envelope) error

type Consumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewConsumer connects to url and subscribes queue to exchange under every key.
func NewConsumer(url, exchange, queue string, keys ...string) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbit: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	c := &Consumer{conn: conn, ch: ch}
	if c.queue, err = bindTopology(ch, exchange, queue, keys); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func bindTopology(ch *amqp.Channel, exchange, queue string, keys []string) (string, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return "", fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return "", fmt.Errorf("declare queue %s: %w", queue, err)
	}
	for _, key := range keys {
		if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			return "", fmt.Errorf("bind %s to %s: %w", key, q.Name, err)
		}
	}
	return q.Name, nil
}

func (c *Consumer) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Consume feeds deliveries to handle on workers goroutines until ctx is done.
func (c *Consumer) Consume(ctx context.Context, workers int, handle Handler) error {
	if c == nil || c.ch == nil {
		return fmt.Errorf("consumer is not initialized")
	}
	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	msgs, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	return Drain(ctx, workers, msgs, handle)
}

// Drain acks handled deliveries and nacks failed ones without requeue. It returns once
// msgs is closed or ctx is done.
func Drain(ctx context.Context, workers int, msgs <-chan amqp.Delivery, handle Handler) error {
	if workers <= 0 {
		workers = 1
	}
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case d, ok := <-msgs:
					if !ok {
						return
					}
					deliver(ctx, d, handle)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	wg.Wait()
	return nil
}

func deliver(ctx context.Context, d amqp.Delivery, handle Handler) {
	env := Envelope{Key: d.RoutingKey, Body: d.Body, MessageID: d.MessageId}
	if id, ok := d.Headers["X-Request-ID"].(string); ok {
		env.ReqID = id
	}
	if err := handle(ctx, env); err != nil {
		log.L().Warn("event dropped",
			zap.String("key", env.Key),
			zap.String("message_id", env.MessageID),
			zap.String("request_id", env.ReqID),
			zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}
