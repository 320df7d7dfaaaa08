// Package trigger adapts storage notifications into orchestrator batches.
package trigger

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
	"github.com/minio/minio-go/v7/pkg/notification"
	"github.com/vodpipeline/mediaconvert-trigger/internal/orchestrator"
	"github.com/vodpipeline/mediaconvert-trigger/internal/types/transcode"
)

// BatchHandler is implemented by *orchestrator.Orchestrator
type BatchHandler interface {
	Handle(ctx context.Context, refs []transcode.ObjectRef) orchestrator.BatchReport
}

// FromS3Event maps every record to an ObjectRef, in record order
func FromS3Event(event events.S3Event) []transcode.ObjectRef {
	refs := make([]transcode.ObjectRef, 0, len(event.Records))
	for _, record := range event.Records {
		// URLDecodedKey is filled when the event is unmarshalled
		key := record.S3.Object.URLDecodedKey
		if key == "" {
			key = record.S3.Object.Key
		}
		refs = append(refs, transcode.ObjectRef{
			Bucket: record.S3.Bucket.Name,
			Key:    key,
		})
	}
	return refs
}

// FromMinioNotification handles S3-compatible webhook deliveries. Keys
// arrive form-encoded and are decoded here.
func FromMinioNotification(info notification.Info) []transcode.ObjectRef {
	refs := make([]transcode.ObjectRef, 0, len(info.Records))
	for _, record := range info.Records {
		refs = append(refs, transcode.ObjectRef{
			Bucket: record.S3.Bucket.Name,
			Key:    decodeKey(record.S3.Object.Key),
		})
	}
	return refs
}

// decodeKey undoes the form encoding storage notifications apply to keys
func decodeKey(key string) string {
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		return key
	}
	return decoded
}

// NewLambdaHandler returns the function entry point. It never returns an
// error: the invocation always reports handled and failures only show in
// the log and the returned summary.
func NewLambdaHandler(h BatchHandler, logger *slog.Logger) func(context.Context, events.S3Event) (orchestrator.Summary, error) {
	return func(ctx context.Context, event events.S3Event) (summary orchestrator.Summary, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Trigger handler panicked", slog.Any("panic", r))
				err = nil
			}
		}()

		refs := FromS3Event(event)
		logger.Debug("Trigger event received", slog.Int("records", len(refs)))

		report := h.Handle(ctx, refs)
		return report.Summary(), nil
	}
}
