package orchestrator

import (
	"errors"

	"github.com/vodpipeline/mediaconvert-trigger/internal/services/mediaconvert"
	"github.com/vodpipeline/mediaconvert-trigger/internal/services/source"
	"github.com/vodpipeline/mediaconvert-trigger/internal/types"
	"github.com/vodpipeline/mediaconvert-trigger/internal/types/transcode"
)

// ItemOutcome pairs one source object with the result of its submission
type ItemOutcome struct {
	Ref transcode.ObjectRef
	Job mediaconvert.Job
	Err error
}

func (o ItemOutcome) Accepted() bool {
	return o.Err == nil
}

// Skipped reports whether the object was deliberately not submitted
func (o ItemOutcome) Skipped() bool {
	return errors.Is(o.Err, ErrDuplicateNotification) ||
		errors.Is(o.Err, source.ErrDirectoryMarker) ||
		errors.Is(o.Err, source.ErrSourceMissing) ||
		errors.Is(o.Err, source.ErrSourceEmpty)
}

func (o ItemOutcome) Status() types.SubmissionStatus {
	switch {
	case o.Accepted():
		return types.SubmissionAccepted
	case o.Skipped():
		return types.SubmissionSkipped
	default:
		return types.SubmissionFailed
	}
}

// BatchReport holds one outcome per trigger record, in trigger order
type BatchReport struct {
	BatchID  string
	Endpoint mediaconvert.Endpoint
	// Err is set when the whole batch was aborted
	Err      error
	Outcomes []ItemOutcome
}

func (r BatchReport) Submitted() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Accepted() {
			n++
		}
	}
	return n
}

func (r BatchReport) Failed() int {
	return len(r.Outcomes) - r.Submitted()
}

// Summary is the JSON shape returned to the trigger's caller
type Summary struct {
	BatchID   string        `json:"batch_id"`
	Endpoint  string        `json:"endpoint,omitempty"`
	Error     string        `json:"error,omitempty"`
	Total     int           `json:"total"`
	Submitted int           `json:"submitted"`
	Failed    int           `json:"failed"`
	Items     []ItemSummary `json:"items"`
}

type ItemSummary struct {
	Bucket string                 `json:"bucket"`
	Key    string                 `json:"key"`
	Status types.SubmissionStatus `json:"status"`
	JobID  string                 `json:"job_id,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

func (r BatchReport) Summary() Summary {
	s := Summary{
		BatchID:   r.BatchID,
		Endpoint:  r.Endpoint.String(),
		Total:     len(r.Outcomes),
		Submitted: r.Submitted(),
		Failed:    r.Failed(),
		Items:     make([]ItemSummary, 0, len(r.Outcomes)),
	}
	if r.Err != nil {
		s.Error = r.Err.Error()
	}

	for _, o := range r.Outcomes {
		item := ItemSummary{
			Bucket: o.Ref.Bucket,
			Key:    o.Ref.Key,
			Status: o.Status(),
			JobID:  o.Job.ID,
		}
		if o.Err != nil {
			item.Error = o.Err.Error()
		}
		s.Items = append(s.Items, item)
	}

	return s
}

// Submissions converts the report into ledger rows
func (r BatchReport) Submissions() []types.Submission {
	rows := make([]types.Submission, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		row := types.Submission{
			BatchID:  r.BatchID,
			Bucket:   o.Ref.Bucket,
			Key:      o.Ref.Key,
			JobID:    o.Job.ID,
			Endpoint: r.Endpoint.String(),
			Status:   o.Status(),
		}
		if o.Err != nil {
			row.Error = o.Err.Error()
		}
		rows = append(rows, row)
	}
	return rows
}
