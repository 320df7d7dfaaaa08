package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/vodpipeline/mediaconvert-trigger/internal/types"
)

func TestHub_DeliversByBucket(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	src := NewClient(nil, "dashboard", "src", hub)
	all := NewClient(nil, "ops", "", hub)
	hub.RegisterClient(src)
	hub.RegisterClient(all)

	hub.Broadcast("other", types.NewEvent(types.EventJobSubmitted, types.JobEvent{Bucket: "other"}))
	hub.Broadcast("src", types.NewEvent(types.EventJobSubmitted, types.JobEvent{Bucket: "src"}))

	select {
	case <-src.send:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the src subscriber to receive the src event")
	}
	select {
	case msg := <-src.send:
		t.Fatalf("Expected no event from another bucket, got %s", msg)
	case <-time.After(50 * time.Millisecond):
	}

	for i := 0; i < 2; i++ {
		select {
		case <-all.send:
		case <-time.After(2 * time.Second):
			t.Fatalf("Expected the unfiltered subscriber to receive event %d", i+1)
		}
	}
}

func TestHub_StoppedHubDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := NewClient(nil, "dashboard", "", hub)
	hub.RegisterClient(client)
	cancel()
	<-stopped

	returned := make(chan bool)
	go func() {
		hub.UnregisterClient(client)
		returned <- hub.RegisterClient(NewClient(nil, "late", "", hub))
	}()

	select {
	case registered := <-returned:
		if registered {
			t.Error("Expected registration on a stopped hub to be refused")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected calls on a stopped hub to return")
	}
}
