package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/vodpipeline/mediaconvert-trigger/internal/types/transcode"
)

const NotificationKey = "notification:%s:%s" // notification:bucket:key

const DefaultNotificationTTL = 10 * time.Minute

// NotificationGuard suppresses repeated deliveries of the same object
// notification. Storage events are delivered at least once, so the same
// object may arrive in several batches within a short window.
type NotificationGuard struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewNotificationGuard(redisClient *redis.Client, ttl time.Duration) *NotificationGuard {
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}
	return &NotificationGuard{
		redis: redisClient,
		ttl:   ttl,
	}
}

// Claim records ref under batchID. It returns false when another batch
// already claimed the same object within the TTL.
func (g *NotificationGuard) Claim(ctx context.Context, ref transcode.ObjectRef, batchID string) (bool, error) {
	key := fmt.Sprintf(NotificationKey, ref.Bucket, ref.Key)

	ok, err := g.redis.SetNX(ctx, key, batchID, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim notification %s: %w", ref, err)
	}

	return ok, nil
}

// Release drops a claim held by batchID so a redelivery can be submitted again.
// Claims held by other batches are left alone.
func (g *NotificationGuard) Release(ctx context.Context, ref transcode.ObjectRef, batchID string) error {
	key := fmt.Sprintf(NotificationKey, ref.Bucket, ref.Key)

	owner, err := g.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read claim %s: %w", ref, err)
	}
	if owner != batchID {
		return nil
	}

	return g.redis.Del(ctx, key).Err()
}

// ClaimedBy returns the batch holding ref, or "" when unclaimed
func (g *NotificationGuard) ClaimedBy(ctx context.Context, ref transcode.ObjectRef) (string, error) {
	owner, err := g.redis.Get(ctx, fmt.Sprintf(NotificationKey, ref.Bucket, ref.Key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return owner, err
}
