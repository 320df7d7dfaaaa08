package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// setupTestRedis creates an in-memory Redis server for testing
func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
		DB:   0,
	})

	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		t.Fatalf("Failed to connect to test Redis: %v", err)
	}

	cleanup := func() {
		redisClient.Close()
		mr.Close()
	}

	return redisClient, cleanup
}

func TestTokenBucket_Allow(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	bucket := NewTokenBucket(redisClient, PrefixSubmissionQuota, 5, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := bucket.Allow(ctx, "us-east-1")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !allowed {
			t.Fatalf("Expected submission %d to be allowed", i+1)
		}
	}

	allowed, err := bucket.Allow(ctx, "us-east-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if allowed {
		t.Fatal("Expected submission to be denied after quota reached")
	}

	remaining, err := bucket.GetRemaining(ctx, "us-east-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("Expected 0 remaining tokens, got %d", remaining)
	}
}

func TestTokenBucket_ScopesAreIndependent(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	bucket := NewTokenBucket(redisClient, PrefixSubmissionQuota, 1, 1)
	ctx := context.Background()

	if allowed, _ := bucket.Allow(ctx, "us-east-1"); !allowed {
		t.Fatal("Expected first us-east-1 submission to be allowed")
	}
	if allowed, _ := bucket.Allow(ctx, "eu-west-1"); !allowed {
		t.Fatal("Expected eu-west-1 to have its own quota")
	}
}

func TestTokenBucket_Refill(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	bucket := NewTokenBucket(redisClient, PrefixSubmissionQuota, 2, 2)
	now := time.Unix(1_700_000_000, 0)
	bucket.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		bucket.Allow(ctx, "us-east-1")
	}
	if allowed, _ := bucket.Allow(ctx, "us-east-1"); allowed {
		t.Fatal("Expected bucket to be empty")
	}

	now = now.Add(time.Minute)

	remaining, err := bucket.GetRemaining(ctx, "us-east-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if remaining != 2 {
		t.Fatalf("Expected 2 remaining tokens after a full window, got %d", remaining)
	}
}
