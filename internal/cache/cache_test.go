package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/vodpipeline/mediaconvert-trigger/internal/types/transcode"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return mr, client
}

func TestNotificationGuard_Claim(t *testing.T) {
	_, client := setupTestRedis(t)
	guard := NewNotificationGuard(client, time.Minute)
	ctx := context.Background()
	ref := transcode.ObjectRef{Bucket: "src", Key: "clip.mp4"}

	ok, err := guard.Claim(ctx, ref, "batch-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("Expected first claim to succeed")
	}

	ok, err = guard.Claim(ctx, ref, "batch-2")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ok {
		t.Fatal("Expected duplicate claim to be rejected")
	}

	owner, err := guard.ClaimedBy(ctx, ref)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if owner != "batch-1" {
		t.Fatalf("Expected claim owner batch-1, got %q", owner)
	}
}

func TestNotificationGuard_Expires(t *testing.T) {
	mr, client := setupTestRedis(t)
	guard := NewNotificationGuard(client, time.Minute)
	ctx := context.Background()
	ref := transcode.ObjectRef{Bucket: "src", Key: "clip.mp4"}

	if ok, _ := guard.Claim(ctx, ref, "batch-1"); !ok {
		t.Fatal("Expected first claim to succeed")
	}

	mr.FastForward(2 * time.Minute)

	if ok, _ := guard.Claim(ctx, ref, "batch-2"); !ok {
		t.Fatal("Expected claim to succeed after TTL")
	}
}

func TestNotificationGuard_Release(t *testing.T) {
	_, client := setupTestRedis(t)
	guard := NewNotificationGuard(client, time.Minute)
	ctx := context.Background()
	ref := transcode.ObjectRef{Bucket: "src", Key: "clip.mp4"}

	guard.Claim(ctx, ref, "batch-1")

	// another batch cannot release someone else's claim
	if err := guard.Release(ctx, ref, "batch-2"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if owner, _ := guard.ClaimedBy(ctx, ref); owner != "batch-1" {
		t.Fatalf("Expected claim to survive foreign release, owner %q", owner)
	}

	if err := guard.Release(ctx, ref, "batch-1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ok, _ := guard.Claim(ctx, ref, "batch-3"); !ok {
		t.Fatal("Expected claim to succeed after release")
	}
}
