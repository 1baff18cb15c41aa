package queue

import (
	"context"
	"time"
)

// MessageInterface abstracts a delivered message so workers can be
// tested without a broker.
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// JobQueue is what the API server and worker see of the broker.
type JobQueue interface {
	// Enqueue publishes a job. NotBefore delays delivery, NotAfter
	// expires it.
	Enqueue(ctx context.Context, job *Job) error

	// Consume starts an async consumer. Messages arrive on the first
	// channel until ctx is cancelled; consumer-level failures arrive
	// on the second. The caller acks or nacks each message.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// HealthCheck verifies the broker connection is usable.
	HealthCheck(ctx context.Context) error

	Close() error
}

// DLQPurger removes dead-lettered messages older than a retention window.
// RabbitMQQueue implements it; the garbage collector consumes it.
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}
