package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/ledgerbridge/internal/jobs"
	"github.com/odyssey-erp/ledgerbridge/internal/posting"
)

// PostingOrchestrator runs one posting pass for a source document.
type PostingOrchestrator interface {
	Post(ctx context.Context, sourceDocID uuid.UUID) (posting.Outcome, error)
}

// PostingDispatchJob executes queued posting runs.
type PostingDispatchJob struct {
	Orchestrator PostingOrchestrator
	Logger       *slog.Logger
	Metrics      *jobmetrics.Metrics
}

// NewPostingDispatchJob constructs the job handler.
func NewPostingDispatchJob(orchestrator PostingOrchestrator, logger *slog.Logger, metrics *jobmetrics.Metrics) *PostingDispatchJob {
	return &PostingDispatchJob{Orchestrator: orchestrator, Logger: logger, Metrics: metrics}
}

// Handle executes one posting dispatch task. A concurrently held document
// lock is retried by Asynq; malformed payloads are dropped.
func (j *PostingDispatchJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Orchestrator == nil {
		return errors.New("posting dispatch: dependencies not configured")
	}
	var payload PostingDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	sourceDocID, err := uuid.Parse(payload.SourceDocID)
	if err != nil {
		j.log().Warn("invalid source document id", slog.String("raw", payload.SourceDocID))
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskPostingDispatch)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	outcome, err := j.Orchestrator.Post(ctx, sourceDocID)
	if err != nil {
		resultErr = err
		if errors.Is(err, posting.ErrConcurrentOrchestration) {
			j.log().Info("document locked by another run, retrying later",
				slog.String("source_doc", sourceDocID.String()))
			return resultErr
		}
		j.log().Error("posting run failed",
			slog.String("source_doc", sourceDocID.String()),
			slog.Any("error", err))
		return resultErr
	}
	j.log().Info("posting run finished",
		slog.String("source_doc", sourceDocID.String()),
		slog.String("status", string(outcome.Status)),
		slog.Int("posted", outcome.Posted),
		slog.Int("expected", outcome.Expected))
	return resultErr
}

func (j *PostingDispatchJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *PostingDispatchJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPostingDispatch))
	}
	return slog.Default().With(slog.String("job", TaskPostingDispatch))
}
