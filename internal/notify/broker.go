package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type MessageHandler func(ctx context.Context, message []byte) error

type Broker interface {
	Publish(ctx context.Context, queueName string, message []byte) error
	Subscribe(ctx context.Context, queueName string, handler MessageHandler) error
	Close() error
}

const MaxDeliveryAttempts = 3

type RabbitMQBroker struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.RWMutex
	log     *zap.SugaredLogger

	republish func(ctx context.Context, queueName string, msg amqp.Publishing) error
	backoff   func(attempt int) time.Duration
}

type BrokerConfig struct {
	URL           string
	PrefetchCount int
	Queues        []string
	Logger        *zap.SugaredLogger
}

func retryBackoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

// NewRabbitMQBroker declares every queue in cfg.Queues together with its
// "-dlq" companion.
func NewRabbitMQBroker(cfg BrokerConfig) (*RabbitMQBroker, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.Qos(cfg.PrefetchCount, 0, false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	b := &RabbitMQBroker{conn: conn, channel: channel, log: log, backoff: retryBackoff}
	b.republish = b.publish
	for _, q := range cfg.Queues {
		for _, name := range []string{q, DeadLetterQueue(q)} {
			if err := b.declareQueue(name); err != nil {
				b.Close()
				return nil, err
			}
		}
	}
	return b, nil
}

func DeadLetterQueue(queueName string) string {
	return queueName + "-dlq"
}

func (b *RabbitMQBroker) declareQueue(queueName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}
	return nil
}

func (b *RabbitMQBroker) Publish(ctx context.Context, queueName string, message []byte) error {
	return b.publish(ctx, queueName, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         message,
		Timestamp:    time.Now(),
	})
}

func (b *RabbitMQBroker) publish(ctx context.Context, queueName string, msg amqp.Publishing) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.channel.PublishWithContext(ctx, "", queueName, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (b *RabbitMQBroker) Subscribe(ctx context.Context, queueName string, handler MessageHandler) error {
	b.mu.RLock()
	msgs, err := b.channel.Consume(
		queueName, // queue
		"",        // consumer
		false,     // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	b.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				b.handleMessage(ctx, msg, handler, queueName)
			}
		}
	}()
	return nil
}

// handleMessage republishes a failed message with an incremented attempt
// header and parks it on the dead letter queue after MaxDeliveryAttempts.
// When the republish itself fails the delivery is requeued instead of acked.
func (b *RabbitMQBroker) handleMessage(ctx context.Context, msg amqp.Delivery, handler MessageHandler, queueName string) {
	err := handler(ctx, msg.Body)
	if err == nil {
		b.ack(msg, queueName)
		return
	}

	attempt := 0
	if msg.Headers != nil {
		if n, ok := msg.Headers["x-retry-count"].(int32); ok {
			attempt = int(n)
		}
	}

	target := queueName
	out := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  msg.ContentType,
		Body:         msg.Body,
		Headers:      amqp.Table{"x-retry-count": int32(attempt + 1)},
		Timestamp:    time.Now(),
	}
	if attempt < MaxDeliveryAttempts {
		b.log.Warnw("Message handler failed, retrying", "queue", queueName, "attempt", attempt+1, "error", err)
		time.Sleep(b.backoff(attempt))
	} else {
		target = DeadLetterQueue(queueName)
		out.Headers = amqp.Table{
			"x-original-queue": queueName,
			"x-retry-count":    int32(attempt),
			"x-error":          err.Error(),
		}
		b.log.Errorw("Message handler failed, moving to dead letter queue", "queue", queueName, "attempts", attempt, "error", err)
	}

	if perr := b.republish(ctx, target, out); perr != nil {
		b.log.Errorw("Failed to republish message, requeueing", "queue", target, "handler_error", err, "error", perr)
		if nerr := msg.Nack(false, true); nerr != nil {
			b.log.Errorw("Failed to nack message", "queue", queueName, "error", nerr)
		}
		return
	}
	b.ack(msg, queueName)
}

func (b *RabbitMQBroker) ack(msg amqp.Delivery, queueName string) {
	if err := msg.Ack(false); err != nil {
		b.log.Errorw("Failed to ack message", "queue", queueName, "error", err)
	}
}

func (b *RabbitMQBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
