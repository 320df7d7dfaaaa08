package types

import "time"

type SubmissionStatus string

const (
	SubmissionAccepted SubmissionStatus = "accepted"
	SubmissionFailed   SubmissionStatus = "failed"
	SubmissionSkipped  SubmissionStatus = "skipped"
)

// Submission is one ledger row: the outcome of a job-creation attempt for a source object
type Submission struct {
	ID        int64            `json:"id"`
	BatchID   string           `json:"batch_id"`
	Bucket    string           `json:"bucket"`
	Key       string           `json:"key"`
	JobID     string           `json:"job_id,omitempty"`
	Endpoint  string           `json:"endpoint,omitempty"`
	Status    SubmissionStatus `json:"status"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// SubmissionQuery filters ledger lookups
type SubmissionQuery struct {
	Bucket string `validate:"required"`
	Key    string
	Limit  int `validate:"gte=0,lte=500"`
}
