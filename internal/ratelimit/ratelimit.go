package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// allowScript atomically refills and takes one token.
// KEYS[1] bucket; ARGV capacity, refill per window, window seconds, now.
var allowScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local window = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local tokens_to_add = math.floor(((now - last_refill) / window) * refill_rate)
	if tokens_to_add > 0 then
		tokens = math.min(capacity, tokens + tokens_to_add)
		last_refill = now
	end

	local allowed = 0
	if tokens > 0 then
		tokens = tokens - 1
		allowed = 1
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_refill', last_refill)
	redis.call('EXPIRE', key, window * 2)
	return allowed
`)

var remainingScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local window = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local tokens_to_add = math.floor(((now - last_refill) / window) * refill_rate)
	if tokens_to_add > 0 then
		tokens = math.min(capacity, tokens + tokens_to_add)
	end

	return tokens
`)

// TokenBucket is a Redis-backed token bucket shared by every process
// using the same prefix. It caps job submissions against the service's
// request quota and notification deliveries per sender.
type TokenBucket struct {
	redis    *redis.Client
	prefix   string
	capacity int64         // Maximum number of tokens
	refill   int64         // Tokens added per window
	window   time.Duration
	now      func() time.Time
}

const (
	PrefixSubmissionQuota  = "submission_quota"
	PrefixNotificationRate = "notification_rate"
)

// NewTokenBucket creates a bucket refilled over one minute
func NewTokenBucket(redisClient *redis.Client, prefix string, capacity, refillRate int64) *TokenBucket {
	return &TokenBucket{
		redis:    redisClient,
		prefix:   prefix,
		capacity: capacity,
		refill:   refillRate,
		window:   time.Minute,
		now:      time.Now,
	}
}

func (tb *TokenBucket) key(scope string) string {
	return fmt.Sprintf("%s:%s", tb.prefix, scope)
}

// Capacity is the bucket size
func (tb *TokenBucket) Capacity() int64 {
	return tb.capacity
}

// Allow takes one token from scope's bucket and reports whether one was available
func (tb *TokenBucket) Allow(ctx context.Context, scope string) (bool, error) {
	result, err := allowScript.Run(ctx, tb.redis, []string{tb.key(scope)},
		tb.capacity, tb.refill, int64(tb.window.Seconds()), tb.now().Unix()).Result()
	if err != nil {
		return false, fmt.Errorf("quota check failed: %w", err)
	}

	allowed, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected result type from quota script")
	}

	return allowed == 1, nil
}

// GetRemaining returns the tokens left in scope's bucket without taking one
func (tb *TokenBucket) GetRemaining(ctx context.Context, scope string) (int64, error) {
	result, err := remainingScript.Run(ctx, tb.redis, []string{tb.key(scope)},
		tb.capacity, tb.refill, int64(tb.window.Seconds()), tb.now().Unix()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get remaining quota: %w", err)
	}

	remaining, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected result type from remaining quota script")
	}

	return remaining, nil
}
