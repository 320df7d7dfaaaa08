package storage

import (
	"context"

	"github.com/vodpipeline/mediaconvert-trigger/internal/types"
)

// Storage is the submission ledger
type Storage interface {
	RecordSubmissions(ctx context.Context, submissions []types.Submission) error
	ListSubmissions(ctx context.Context, q types.SubmissionQuery) ([]types.Submission, error)
}
