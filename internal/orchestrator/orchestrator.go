// Package orchestrator turns one trigger batch into MediaConvert jobs.
//
// A batch resolves the regional endpoint once, then builds and submits one
// job per source object concurrently and waits for every submission to be
// acknowledged or to fail. A failing object never stops the others, and
// Handle itself never fails: every object gets an ItemOutcome.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vodpipeline/mediaconvert-trigger/internal/config"
	"github.com/vodpipeline/mediaconvert-trigger/internal/events"
	"github.com/vodpipeline/mediaconvert-trigger/internal/jobspec"
	"github.com/vodpipeline/mediaconvert-trigger/internal/metrics"
	"github.com/vodpipeline/mediaconvert-trigger/internal/services/mediaconvert"
	"github.com/vodpipeline/mediaconvert-trigger/internal/services/source"
	"github.com/vodpipeline/mediaconvert-trigger/internal/types"
	"github.com/vodpipeline/mediaconvert-trigger/internal/types/transcode"
	"golang.org/x/sync/errgroup"
)

var (
	ErrMissingConfig         = errors.New("missing transcode configuration")
	ErrBatchAborted          = errors.New("batch aborted")
	ErrDuplicateNotification = errors.New("duplicate notification")
	ErrQuotaExceeded         = errors.New("submission quota exceeded")
	ErrSubmissionPanicked    = errors.New("submission panicked")
)

type Resolver interface {
	Resolve(ctx context.Context, region string) (mediaconvert.Endpoint, error)
}

type Submitter interface {
	Submit(ctx context.Context, endpoint mediaconvert.Endpoint, spec jobspec.Spec, role string) (mediaconvert.Job, error)
}

// NotificationGuard claims objects so redelivered notifications are not resubmitted
type NotificationGuard interface {
	Claim(ctx context.Context, ref transcode.ObjectRef, batchID string) (bool, error)
	Release(ctx context.Context, ref transcode.ObjectRef, batchID string) error
	ClaimedBy(ctx context.Context, ref transcode.ObjectRef) (string, error)
}

// Quota is consulted once per submission, scoped by region
type Quota interface {
	Allow(ctx context.Context, scope string) (bool, error)
}

type SourceProbe interface {
	Check(ctx context.Context, ref transcode.ObjectRef) (source.Info, error)
}

type Ledger interface {
	RecordSubmissions(ctx context.Context, submissions []types.Submission) error
}

type Orchestrator struct {
	cfg       config.Transcode
	builder   *jobspec.Builder
	resolver  Resolver
	submitter Submitter
	logger    *slog.Logger

	guard     NotificationGuard
	quota     Quota
	probe     SourceProbe
	ledger    Ledger
	publisher events.Publisher
	metrics   *metrics.Metrics
}

type Option func(*Orchestrator)

func WithNotificationGuard(g NotificationGuard) Option {
	return func(o *Orchestrator) { o.guard = g }
}

func WithQuota(q Quota) Option {
	return func(o *Orchestrator) { o.quota = q }
}

func WithSourceProbe(p SourceProbe) Option {
	return func(o *Orchestrator) { o.probe = p }
}

func WithLedger(l Ledger) Option {
	return func(o *Orchestrator) { o.ledger = l }
}

func WithPublisher(p events.Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New rejects incomplete configuration and an empty rendition ladder.
func New(cfg config.Transcode, resolver Resolver, submitter Submitter, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	switch {
	case cfg.DestinationBucket == "":
		return nil, fmt.Errorf("%w: destination bucket", ErrMissingConfig)
	case cfg.Role == "":
		return nil, fmt.Errorf("%w: mediaconvert role", ErrMissingConfig)
	case cfg.Region == "":
		return nil, fmt.Errorf("%w: region", ErrMissingConfig)
	case !transcode.IsRegion(cfg.Region):
		return nil, fmt.Errorf("%w: %q", mediaconvert.ErrInvalidRegion, cfg.Region)
	case cfg.MaxConcurrentSubmissions < 0:
		return nil, fmt.Errorf("max concurrent submissions must not be negative, got %d", cfg.MaxConcurrentSubmissions)
	}

	ladder := cfg.Renditions
	if len(ladder) == 0 {
		ladder = transcode.DefaultLadder()
	}

	builder, err := jobspec.NewBuilder(cfg.DestinationBucket, ladder)
	if err != nil {
		return nil, fmt.Errorf("failed to create job spec builder: %w", err)
	}

	o := &Orchestrator{
		cfg:       cfg,
		builder:   builder,
		resolver:  resolver,
		submitter: submitter,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// Handle processes one trigger batch. Endpoint resolution failure aborts
// the batch before any submission; every ref then carries ErrBatchAborted.
func (o *Orchestrator) Handle(ctx context.Context, refs []transcode.ObjectRef) BatchReport {
	start := time.Now()
	batchID := uuid.NewString()
	log := o.logger.With(slog.String("batch_id", batchID))

	report := BatchReport{
		BatchID:  batchID,
		Outcomes: make([]ItemOutcome, len(refs)),
	}
	for i, ref := range refs {
		report.Outcomes[i].Ref = ref
	}

	endpoint, err := o.resolver.Resolve(ctx, o.cfg.Region)
	if err != nil {
		report.Err = fmt.Errorf("%w: %w", ErrBatchAborted, err)
		for i := range report.Outcomes {
			report.Outcomes[i].Err = report.Err
		}
		log.Error("Endpoint resolution failed, batch aborted",
			slog.String("region", o.cfg.Region),
			slog.Int("records", len(refs)),
			slog.String("error", err.Error()))
		if o.metrics != nil {
			o.metrics.EndpointFailures.Inc()
		}
		o.finish(ctx, log, report, start)
		return report
	}
	report.Endpoint = endpoint

	var g errgroup.Group
	if o.cfg.MaxConcurrentSubmissions > 0 {
		g.SetLimit(o.cfg.MaxConcurrentSubmissions)
	}

	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			report.Outcomes[i] = o.process(ctx, log, batchID, endpoint, ref)
			return nil
		})
	}
	g.Wait()

	o.finish(ctx, log, report, start)
	return report
}

func (o *Orchestrator) process(ctx context.Context, log *slog.Logger, batchID string, endpoint mediaconvert.Endpoint, ref transcode.ObjectRef) (out ItemOutcome) {
	out.Ref = ref
	log = log.With(slog.String("bucket", ref.Bucket), slog.String("key", ref.Key))

	claimed := false
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("%w: %v", ErrSubmissionPanicked, r)
			log.Error("Submission panicked", slog.Any("panic", r))
		}
		if out.Err != nil && claimed {
			o.release(ctx, log, ref, batchID)
		}
	}()

	if o.guard != nil {
		ok, err := o.guard.Claim(ctx, ref, batchID)
		switch {
		case err != nil:
			// fail open
			log.Warn("Duplicate check failed, submitting anyway", slog.String("error", err.Error()))
		case !ok:
			out.Err = ErrDuplicateNotification
			owner, _ := o.guard.ClaimedBy(ctx, ref)
			log.Info("Skipping duplicate notification", slog.String("claimed_by", owner))
			return out
		default:
			claimed = true
		}
	}

	if o.probe != nil {
		if _, err := o.probe.Check(ctx, ref); err != nil {
			out.Err = err
			log.Warn("Source check failed, not submitting", slog.String("error", err.Error()))
			return out
		}
	}

	if o.quota != nil {
		allowed, err := o.quota.Allow(ctx, o.cfg.Region)
		switch {
		case err != nil:
			log.Warn("Quota check failed, submitting anyway", slog.String("error", err.Error()))
		case !allowed:
			out.Err = ErrQuotaExceeded
			log.Error("Submission quota exceeded")
			return out
		}
	}

	spec := o.builder.Build(ref)

	job, err := o.submitter.Submit(ctx, endpoint, spec, o.cfg.Role)
	if err != nil {
		out.Err = err
		log.Error("Job submission failed", slog.String("error", err.Error()))
		return out
	}

	out.Job = job
	log.Info("Job submitted",
		slog.String("job_id", job.ID),
		slog.String("source", spec.SourceURI),
		slog.String("destination", spec.DestinationURI))
	return out
}

func (o *Orchestrator) release(ctx context.Context, log *slog.Logger, ref transcode.ObjectRef, batchID string) {
	if err := o.guard.Release(ctx, ref, batchID); err != nil {
		log.Warn("Failed to release notification claim", slog.String("error", err.Error()))
	}
}

// finish records and publishes the report. None of it can change the outcome.
func (o *Orchestrator) finish(ctx context.Context, log *slog.Logger, report BatchReport, start time.Time) {
	if o.metrics != nil {
		o.metrics.Batches.Inc()
		for _, out := range report.Outcomes {
			o.metrics.Submissions.WithLabelValues(string(out.Status())).Inc()
		}
		o.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	}

	if o.ledger != nil {
		if err := o.ledger.RecordSubmissions(ctx, report.Submissions()); err != nil {
			log.Error("Failed to record submissions", slog.String("error", err.Error()))
		}
	}

	if o.publisher != nil {
		for _, out := range report.Outcomes {
			event := types.JobEvent{
				BatchID: report.BatchID,
				Bucket:  out.Ref.Bucket,
				Key:     out.Ref.Key,
				JobID:   out.Job.ID,
			}
			if out.Err != nil {
				event.Error = out.Err.Error()
			}
			o.publisher.PublishJobOutcome(event)
		}
		o.publisher.PublishBatchCompleted(types.BatchEvent{
			BatchID:   report.BatchID,
			Total:     len(report.Outcomes),
			Submitted: report.Submitted(),
			Failed:    report.Failed(),
		})
	}

	log.Info("Batch handled",
		slog.String("endpoint", report.Endpoint.String()),
		slog.Int("total", len(report.Outcomes)),
		slog.Int("submitted", report.Submitted()),
		slog.Int("failed", report.Failed()),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
}
