package events

import (
	"github.com/vodpipeline/mediaconvert-trigger/internal/types"
)

// Publisher pushes submission outcomes to live subscribers
type Publisher interface {
	PublishJobOutcome(event types.JobEvent)
	PublishBatchCompleted(event types.BatchEvent)
}

// WebSocketHub is the part of the hub the publisher needs
type WebSocketHub interface {
	Broadcast(bucket string, event *types.Event)
	ClientCount() int
}

type EventPublisher struct {
	hub WebSocketHub
}

func NewEventPublisher(hub WebSocketHub) *EventPublisher {
	return &EventPublisher{
		hub: hub,
	}
}

// PublishJobOutcome sends job.submitted or job.failed depending on event.Error
func (p *EventPublisher) PublishJobOutcome(event types.JobEvent) {
	if p.hub.ClientCount() == 0 {
		return
	}

	eventType := types.EventJobSubmitted
	if event.Error != "" {
		eventType = types.EventJobFailed
	}

	p.hub.Broadcast(event.Bucket, types.NewEvent(eventType, event))
}

func (p *EventPublisher) PublishBatchCompleted(event types.BatchEvent) {
	if p.hub.ClientCount() == 0 {
		return
	}

	p.hub.Broadcast("", types.NewEvent(types.EventBatchCompleted, event))
}
