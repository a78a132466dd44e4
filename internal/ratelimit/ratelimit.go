package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "posts:ratelimit"

// FailClosed rejects requests while Redis is unreachable.
const FailClosed = "fail_closed"

// Compile-time interface compliance check.
var _ Limiter = (*limiter)(nil)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter counts requests per client and rule in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, client, rule string, limit int, window time.Duration) (Decision, error)
}

type limiter struct {
	redis       *redis.Client
	log         logrus.FieldLogger
	failureMode string
	now         func() time.Time
}

// New creates a Redis-backed limiter. failureMode is "fail_open" or
// "fail_closed" and decides what happens when Redis errors.
func New(log logrus.FieldLogger, client *redis.Client, failureMode string) Limiter {
	return &limiter{
		redis:       client,
		log:         log.WithField("component", "ratelimit"),
		failureMode: failureMode,
		now:         time.Now,
	}
}

// Allow increments the counter for client and rule. The window starts at
// the first request and the counter expires with it.
func (l *limiter) Allow(
	ctx context.Context,
	client, rule string,
	limit int,
	window time.Duration,
) (Decision, error) {
	key := fmt.Sprintf("%s:%s:%s", keyPrefix, rule, client)

	pipe := l.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		l.log.WithError(err).WithField("rule", rule).Error("Rate limit counter unavailable")

		if l.failureMode == FailClosed {
			return Decision{Limit: limit}, fmt.Errorf("rate limiter unavailable: %w", err)
		}

		return Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}

	remainingTTL := ttl.Val()
	if remainingTTL <= 0 {
		remainingTTL = window
	}

	count := int(incr.Val())

	return Decision{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   l.now().Add(remainingTTL),
	}, nil
}
