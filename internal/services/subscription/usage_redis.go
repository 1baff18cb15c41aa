package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// usageKeyTTL keeps expired day buckets from accumulating. Two days
// covers clock skew around the midnight boundary.
const usageKeyTTL = 48 * time.Hour

// RedisUsageCounter tracks daily AI usage in Redis, one key per user
// per UTC day.
type RedisUsageCounter struct {
	client *redis.Client
	now    func() time.Time
}

var _ UsageCounter = (*RedisUsageCounter)(nil)

// NewRedisUsageCounter creates a usage counter backed by the given
// Redis client.
func NewRedisUsageCounter(client *redis.Client) *RedisUsageCounter {
	return &RedisUsageCounter{
		client: client,
		now:    time.Now,
	}
}

// IncrAIUsage increments today's count and returns the new value.
func (c *RedisUsageCounter) IncrAIUsage(ctx context.Context, userID uuid.UUID) (int64, error) {
	key := c.key(userID)

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, usageKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment AI usage: %w", err)
	}

	return incr.Val(), nil
}

// AIUsage returns today's count without incrementing.
func (c *RedisUsageCounter) AIUsage(ctx context.Context, userID uuid.UUID) (int64, error) {
	used, err := c.client.Get(ctx, c.key(userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read AI usage: %w", err)
	}
	return used, nil
}

func (c *RedisUsageCounter) key(userID uuid.UUID) string {
	return fmt.Sprintf("ai_usage:%s:%s", userID, c.now().UTC().Format("2006-01-02"))
}
