package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/ledgerbridge/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const defaultReconLimit = 100

// GapLister finds source documents whose target ledgers are incomplete.
type GapLister interface {
	ListRetryable(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// PostingEnqueuer queues gap-filling posting runs.
type PostingEnqueuer interface {
	EnqueuePosting(ctx context.Context, sourceDocID uuid.UUID) error
}

// ReconScanJob sweeps the audit log for documents with gaps and queues a
// posting retry for each.
type ReconScanJob struct {
	Audit    GapLister
	Enqueuer PostingEnqueuer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewReconScanJob constructs the job handler.
func NewReconScanJob(audit GapLister, enqueuer PostingEnqueuer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReconScanJob {
	return &ReconScanJob{Audit: audit, Enqueuer: enqueuer, Logger: logger, Metrics: metrics}
}

// Handle executes one reconciliation sweep.
func (j *ReconScanJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Audit == nil || j.Enqueuer == nil {
		return errors.New("recon scan: dependencies not configured")
	}
	var payload ReconScanPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Limit <= 0 {
		payload.Limit = defaultReconLimit
	}

	tracker := j.metrics().Track(TaskReconScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	docs, err := j.Audit.ListRetryable(ctx, payload.Limit)
	if err != nil {
		resultErr = err
		j.log().Error("list documents with gaps", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddGaps(len(docs))

	queued := 0
	for _, docID := range docs {
		if err := j.Enqueuer.EnqueuePosting(ctx, docID); err != nil {
			resultErr = err
			j.log().Error("enqueue gap retry",
				slog.String("source_doc", docID.String()),
				slog.Any("error", err))
			return resultErr
		}
		queued++
	}
	j.log().Info("reconciliation sweep finished",
		slog.Int("gaps", len(docs)),
		slog.Int("queued", queued))
	return resultErr
}

func (j *ReconScanJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReconScanJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReconScan))
	}
	return slog.Default().With(slog.String("job", TaskReconScan))
}
