package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/ledgerbridge/internal/jobs"
	"github.com/odyssey-erp/ledgerbridge/internal/rates"
)

// RateChecker runs the advisory triangular consistency check.
type RateChecker interface {
	Check(ctx context.Context, base string, onDate time.Time) ([]rates.Warning, error)
}

// FXValidateJob cross-checks configured exchange rates. Findings are logged,
// never blocking.
type FXValidateJob struct {
	Checker     RateChecker
	DefaultBase string
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	clock       func() time.Time
}

// NewFXValidateJob constructs the job handler.
func NewFXValidateJob(checker RateChecker, defaultBase string, logger *slog.Logger, metrics *jobmetrics.Metrics) *FXValidateJob {
	if defaultBase == "" {
		defaultBase = "USD"
	}
	return &FXValidateJob{
		Checker:     checker,
		DefaultBase: defaultBase,
		Logger:      logger,
		Metrics:     metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (j *FXValidateJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}

// Handle executes one consistency check.
func (j *FXValidateJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Checker == nil {
		return errors.New("fx validate: dependencies not configured")
	}
	var payload FXValidatePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	base := payload.Base
	if base == "" {
		base = j.DefaultBase
	}
	onDate := j.now()
	if payload.Date != "" {
		parsed, err := time.Parse("2006-01-02", payload.Date)
		if err != nil {
			j.log().Warn("invalid rate date", slog.String("raw", payload.Date))
			return asynq.SkipRetry
		}
		onDate = parsed
	}

	tracker := j.metrics().Track(TaskFXValidate)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	warnings, err := j.Checker.Check(ctx, base, onDate)
	if err != nil {
		resultErr = err
		j.log().Error("fx consistency check", slog.Any("error", err))
		return resultErr
	}
	for _, w := range warnings {
		j.log().Warn("rate inconsistency", slog.String("finding", w.String()))
	}
	j.log().Info("fx consistency check finished",
		slog.String("base", base),
		slog.String("date", onDate.Format("2006-01-02")),
		slog.Int("warnings", len(warnings)))
	return resultErr
}

func (j *FXValidateJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *FXValidateJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *FXValidateJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskFXValidate))
	}
	return slog.Default().With(slog.String("job", TaskFXValidate))
}
