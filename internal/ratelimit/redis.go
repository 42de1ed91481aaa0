// README: Redis-backed sliding-window limiter for multi-instance deployments.
package ratelimit

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// RedisLimiter keeps one sorted set per key, scored by request timestamp, so
// every instance shares the same window. The prune, the add and the count run
// in a single MULTI/EXEC, so concurrent checks on the same key serialise on
// the server and the limit holds across instances.
type RedisLimiter struct {
	rdb        *redis.Client
	limit      int
	window     time.Duration
	retryAfter time.Duration
	seq        atomic.Int64
}

func NewRedisLimiter(rdb *redis.Client, limit int, window, retryAfter time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: limit, window: window, retryAfter: retryAfter}
}

func (l *RedisLimiter) Check(ctx context.Context, key string) (Decision, error) {
	rkey := keyPrefix + key
	now := time.Now()
	cutoff := strconv.FormatInt(now.Add(-l.window).UnixNano(), 10)
	// The sequence suffix keeps members unique when two requests land on the
	// same nanosecond; a deduplicated ZAdd would undercount.
	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + strconv.FormatInt(l.seq.Add(1), 10)

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, rkey, "-inf", cutoff)
	pipe.ZAdd(ctx, rkey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	card := pipe.ZCard(ctx, rkey)
	pipe.Expire(ctx, rkey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	if int(card.Val()) > l.limit {
		// Admitted optimistically, over the limit after the fact: take the
		// member back out so a denied request does not consume quota.
		l.rdb.ZRem(ctx, rkey, member)
		return Decision{Allowed: false, RetryAfter: l.retryAfter}, nil
	}
	return Decision{Allowed: true}, nil
}
