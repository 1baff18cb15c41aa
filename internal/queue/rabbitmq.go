package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DefaultQueueName is where scoring and breakdown jobs land.
	DefaultQueueName = "task_scoring_jobs"
	// DefaultDLQName receives jobs that exhausted their retries.
	DefaultDLQName = "task_scoring_jobs_dlq"
	// DefaultExchangeName is the direct exchange for immediate jobs.
	DefaultExchangeName = "task_jobs"
	// DefaultDelayedExchangeName is used for NotBefore scheduling and
	// needs the rabbitmq_delayed_message_exchange plugin.
	DefaultDelayedExchangeName = "task_jobs_delayed"

	jobRoutingKey = "jobs"
	dlqRoutingKey = "dlq"
)

// RabbitMQQueue is the broker-backed JobQueue. One connection, one
// publish channel; each Consume call opens its own consumer channel.
type RabbitMQQueue struct {
	conn                *amqp.Connection
	channel             *amqp.Channel
	queueName           string
	dlqName             string
	exchangeName        string
	delayedExchangeName string
}

var (
	_ JobQueue  = (*RabbitMQQueue)(nil)
	_ DLQPurger = (*RabbitMQQueue)(nil)
)

// NewRabbitMQQueue connects to the broker and declares the exchanges
// and queues the service relies on.
func NewRabbitMQQueue(amqpURL string) (*RabbitMQQueue, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q := &RabbitMQQueue{
		conn:                conn,
		channel:             ch,
		queueName:           DefaultQueueName,
		dlqName:             DefaultDLQName,
		exchangeName:        DefaultExchangeName,
		delayedExchangeName: DefaultDelayedExchangeName,
	}

	if err := q.declareTopology(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}
	return q, nil
}

func (q *RabbitMQQueue) declareTopology() error {
	// The delayed exchange is optional. If the plugin is missing the
	// declare fails and closes the channel, so reopen and continue
	// without delayed delivery.
	err := q.channel.ExchangeDeclare(
		q.delayedExchangeName, "x-delayed-message",
		true, false, false, false,
		amqp.Table{"x-delayed-type": "direct"},
	)
	if err != nil {
		if q.channel.IsClosed() {
			ch, openErr := q.conn.Channel()
			if openErr != nil {
				return fmt.Errorf("failed to reopen channel after delayed exchange error: %w", openErr)
			}
			q.channel = ch
		}
		fmt.Printf("Warning: delayed message exchange not available (plugin may not be installed): %v\n", err)
	}

	if err := q.channel.ExchangeDeclare(q.exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := q.channel.QueueDeclare(q.dlqName, true, false, false, false, amqp.Table{}); err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}
	if err := q.channel.QueueBind(q.dlqName, dlqRoutingKey, q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	// Main queue dead-letters into the DLQ.
	_, err = q.channel.QueueDeclare(q.queueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    q.exchangeName,
		"x-dead-letter-routing-key": dlqRoutingKey,
	})
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := q.channel.QueueBind(q.queueName, jobRoutingKey, q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue to exchange: %w", err)
	}

	// Binding to the delayed exchange fails when the plugin is absent;
	// immediate delivery still works.
	_ = q.channel.QueueBind(q.queueName, jobRoutingKey, q.delayedExchangeName, false, nil)

	return nil
}

// Enqueue publishes a job. A future NotBefore routes through the
// delayed exchange; NotAfter becomes a per-message TTL.
func (q *RabbitMQQueue) Enqueue(ctx context.Context, job *Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID.String(),
		Timestamp:    job.CreatedAt,
	}

	if job.NotAfter != nil {
		if ttl := time.Until(*job.NotAfter); ttl > 0 {
			publishing.Expiration = strconv.FormatInt(ttl.Milliseconds(), 10)
		}
	}

	exchange := q.exchangeName
	if job.NotBefore != nil {
		if delay := time.Until(*job.NotBefore); delay > 0 {
			exchange = q.delayedExchangeName
			publishing.Headers = amqp.Table{"x-delay": int(delay.Milliseconds())}
		}
	}

	if err := q.channel.PublishWithContext(ctx, exchange, jobRoutingKey, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nil
}

// Consume opens a dedicated channel and streams decoded messages until
// ctx is cancelled. prefetchCount bounds unacked messages per worker;
// 1 gives fair dispatch across worker instances.
func (q *RabbitMQQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error) {
	consumeCh, err := q.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer channel: %w", err)
	}

	if err := consumeCh.Qos(prefetchCount, 0, false); err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := consumeCh.Consume(q.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	msgChan := make(chan *Message, prefetchCount)
	errChan := make(chan error, 1)

	go func() {
		defer close(msgChan)
		defer close(errChan)
		defer func() { _ = consumeCh.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					errChan <- fmt.Errorf("delivery channel closed")
					return
				}

				if delivery.Expiration != "" {
					// Expired in flight; drop without requeue.
					_ = delivery.Nack(false, false)
					continue
				}

				var job Job
				if err := json.Unmarshal(delivery.Body, &job); err != nil {
					// Undecodable payload goes to the DLQ.
					_ = delivery.Nack(false, false)
					errChan <- fmt.Errorf("failed to unmarshal job: %w", err)
					continue
				}

				if !job.ShouldProcess() {
					// NotBefore hasn't passed yet.
					_ = delivery.Nack(false, true)
					continue
				}

				msg := &Message{Job: &job, DeliveryTag: delivery.DeliveryTag, Channel: consumeCh}
				select {
				case <-ctx.Done():
					_ = delivery.Nack(false, true)
					return
				case msgChan <- msg:
				}
			}
		}
	}()

	return msgChan, errChan, nil
}

// PurgeOlderThan drains dead-lettered messages older than retention.
// Newer messages are requeued; iteration stops at the first one, since
// the DLQ is roughly time-ordered.
func (q *RabbitMQQueue) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	purged := 0

	for {
		select {
		case <-ctx.Done():
			return purged, ctx.Err()
		default:
		}

		msg, ok, err := q.channel.Get(q.dlqName, false)
		if err != nil {
			return purged, fmt.Errorf("failed to read DLQ: %w", err)
		}
		if !ok {
			return purged, nil
		}

		if msg.Timestamp.IsZero() || msg.Timestamp.Before(cutoff) {
			if err := msg.Ack(false); err != nil {
				return purged, fmt.Errorf("failed to ack DLQ message: %w", err)
			}
			purged++
			continue
		}

		// First message within retention; put it back and stop
		if err := msg.Nack(false, true); err != nil {
			return purged, fmt.Errorf("failed to requeue DLQ message: %w", err)
		}
		return purged, nil
	}
}

// HealthCheck verifies the connection, channel, and main queue.
func (q *RabbitMQQueue) HealthCheck(ctx context.Context) error {
	if q.conn == nil || q.conn.IsClosed() {
		return fmt.Errorf("RabbitMQ connection is closed")
	}
	if q.channel == nil || q.channel.IsClosed() {
		return fmt.Errorf("RabbitMQ channel is closed")
	}

	// Passive declare fails if the queue has disappeared
	if _, err := q.channel.QueueDeclarePassive(q.queueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    q.exchangeName,
		"x-dead-letter-routing-key": dlqRoutingKey,
	}); err != nil {
		return fmt.Errorf("queue health check failed: %w", err)
	}
	return nil
}

func (q *RabbitMQQueue) Close() error {
	var err error
	if q.channel != nil {
		err = q.channel.Close()
	}
	if q.conn != nil {
		if closeErr := q.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
