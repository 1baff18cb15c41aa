package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConn owns the Redis connection shared by the rate limiter, the
// AI usage counter, and the health checker.
type RedisConn struct {
	client *redis.Client
}

// NewRedisConn connects to Redis and verifies the connection.
func NewRedisConn(redisURL string) (*RedisConn, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisConn{client: client}, nil
}

// Client returns the underlying Redis client.
func (r *RedisConn) Client() *redis.Client {
	return r.client
}

// Ping checks whether Redis is reachable.
func (r *RedisConn) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisConn) Close() error {
	return r.client.Close()
}
