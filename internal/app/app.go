// Package app wires configuration into a ready orchestrator for the
// command binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/vodpipeline/mediaconvert-trigger/internal/cache"
	"github.com/vodpipeline/mediaconvert-trigger/internal/config"
	"github.com/vodpipeline/mediaconvert-trigger/internal/events"
	"github.com/vodpipeline/mediaconvert-trigger/internal/logger"
	"github.com/vodpipeline/mediaconvert-trigger/internal/metrics"
	"github.com/vodpipeline/mediaconvert-trigger/internal/orchestrator"
	"github.com/vodpipeline/mediaconvert-trigger/internal/ratelimit"
	"github.com/vodpipeline/mediaconvert-trigger/internal/services/mediaconvert"
	"github.com/vodpipeline/mediaconvert-trigger/internal/services/source"
	"github.com/vodpipeline/mediaconvert-trigger/internal/storage/postgres"
)

type App struct {
	Orchestrator *orchestrator.Orchestrator

	// Optional backends; nil when not configured
	Redis *redis.Client
	Store *postgres.Postgres

	closers []func() error
}

type Option func(*options)

type options struct {
	clients   mediaconvert.ClientFactory
	publisher events.Publisher
	metrics   *metrics.Metrics
}

// WithClientFactory replaces the AWS SDK client factory
func WithClientFactory(f mediaconvert.ClientFactory) Option {
	return func(o *options) { o.clients = f }
}

func WithPublisher(p events.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New connects every configured backend and builds the orchestrator.
// Optional backends that cannot be reached are logged and left disabled,
// except Postgres, whose failure is returned.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	o := options{clients: mediaconvert.NewClientFactory()}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{}
	var orchOpts []orchestrator.Option

	if cfg.Redis.Enabled() {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, a.Redis.Close)

		if err := a.Redis.Ping(ctx).Err(); err != nil {
			log.Warn("Redis unreachable at startup", slog.String("addr", cfg.Redis.Addr), slog.String("error", err.Error()))
		}

		if cfg.Redis.DedupeTTL > 0 {
			orchOpts = append(orchOpts, orchestrator.WithNotificationGuard(cache.NewNotificationGuard(a.Redis, cfg.Redis.DedupeTTL)))
		}
		if cfg.Redis.QuotaPerMinute > 0 {
			quota := ratelimit.NewTokenBucket(a.Redis, ratelimit.PrefixSubmissionQuota, cfg.Redis.QuotaPerMinute, cfg.Redis.QuotaPerMinute)
			orchOpts = append(orchOpts, orchestrator.WithQuota(quota))
		}
	}

	if cfg.PGSQL.Enabled() {
		store, err := postgres.NewPostgres(cfg.PGSQL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Store = store
		a.closers = append(a.closers, store.Close)
		orchOpts = append(orchOpts, orchestrator.WithLedger(store))
	}

	if cfg.Source.Enabled() {
		probe, err := source.NewProbe(cfg.Source, cfg.Transcode.Region)
		if err != nil {
			a.Close()
			return nil, err
		}
		orchOpts = append(orchOpts, orchestrator.WithSourceProbe(probe))
	}

	if o.publisher != nil {
		orchOpts = append(orchOpts, orchestrator.WithPublisher(o.publisher))
	}
	if o.metrics != nil {
		orchOpts = append(orchOpts, orchestrator.WithMetrics(o.metrics))
	}

	resolver := mediaconvert.NewResolver(o.clients, logger.WithComponent(log, "resolver"))
	submitter := mediaconvert.NewSubmitter(o.clients, cfg.Transcode.Region)

	orch, err := orchestrator.New(cfg.Transcode, resolver, submitter, logger.WithComponent(log, "orchestrator"), orchOpts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	a.Orchestrator = orch

	return a, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("Failed to close backend", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}
