package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/ledgerbridge/internal/cta"
	jobmetrics "github.com/odyssey-erp/ledgerbridge/internal/jobs"
)

// RollupRebuilder recomputes CTA rollups for a fiscal period.
type RollupRebuilder interface {
	Rebuild(ctx context.Context, fiscalPeriod string) ([]cta.Rollup, error)
}

// CTARollupJob rebuilds the CTA rollup on schedule or on demand.
type CTARollupJob struct {
	Service RollupRebuilder
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewCTARollupJob constructs the job handler.
func NewCTARollupJob(service RollupRebuilder, logger *slog.Logger, metrics *jobmetrics.Metrics) *CTARollupJob {
	return &CTARollupJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (j *CTARollupJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}

// Handle executes one rollup rebuild. An empty period defaults to the
// current month.
func (j *CTARollupJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("cta rollup: dependencies not configured")
	}
	var payload CTARollupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	period := payload.FiscalPeriod
	if period == "" {
		period = j.now().Format("2006-01")
	}

	tracker := j.metrics().Track(TaskCTARollup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	rollups, err := j.Service.Rebuild(ctx, period)
	if err != nil {
		resultErr = err
		j.log().Error("rebuild cta rollup",
			slog.String("period", period),
			slog.Any("error", err))
		return resultErr
	}
	j.log().Info("cta rollup rebuilt",
		slog.String("period", period),
		slog.Int("rows", len(rollups)))
	return resultErr
}

func (j *CTARollupJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *CTARollupJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *CTARollupJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCTARollup))
	}
	return slog.Default().With(slog.String("job", TaskCTARollup))
}
