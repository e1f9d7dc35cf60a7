package jobs

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPostingDispatch replicates one source document into its target ledgers.
	TaskPostingDispatch = "posting:dispatch"
	// TaskReconScan sweeps for documents with missing ledger postings.
	TaskReconScan = "recon:scan"
	// TaskCTARollup rebuilds the CTA rollup for a fiscal period.
	TaskCTARollup = "cta:rollup"
	// TaskFXValidate runs the advisory triangular rate check.
	TaskFXValidate = "fx:validate"
)

// PostingDispatchPayload identifies the source document to replicate.
type PostingDispatchPayload struct {
	SourceDocID string `json:"source_doc_id"`
}

// NewPostingDispatchTask constructs a posting dispatch task.
func NewPostingDispatchTask(sourceDocID uuid.UUID) (*asynq.Task, error) {
	body, err := json.Marshal(PostingDispatchPayload{SourceDocID: sourceDocID.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPostingDispatch, body, asynq.Queue(QueueDefault)), nil
}

// ReconScanPayload bounds one reconciliation sweep.
type ReconScanPayload struct {
	Limit int `json:"limit"`
}

// NewReconScanTask constructs a reconciliation sweep task.
func NewReconScanTask(limit int) (*asynq.Task, error) {
	body, err := json.Marshal(ReconScanPayload{Limit: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconScan, body, asynq.Queue(QueueDefault)), nil
}

// CTARollupPayload selects the fiscal period to rebuild; empty means the
// current month.
type CTARollupPayload struct {
	FiscalPeriod string `json:"fiscal_period"`
}

// NewCTARollupTask constructs a CTA rollup rebuild task.
func NewCTARollupTask(fiscalPeriod string) (*asynq.Task, error) {
	body, err := json.Marshal(CTARollupPayload{FiscalPeriod: fiscalPeriod})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCTARollup, body, asynq.Queue(QueueDefault)), nil
}

// FXValidatePayload selects the rate date to check; empty means today.
type FXValidatePayload struct {
	Base string `json:"base"`
	Date string `json:"date"`
}

// NewFXValidateTask constructs an FX consistency check task.
func NewFXValidateTask(base, date string) (*asynq.Task, error) {
	body, err := json.Marshal(FXValidatePayload{Base: base, Date: date})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFXValidate, body, asynq.Queue(QueueDefault)), nil
}

// EnqueuePosting queues a background posting run for one source document.
// It satisfies the posting handler's Dispatcher port.
func (c *Client) EnqueuePosting(ctx context.Context, sourceDocID uuid.UUID) error {
	task, err := NewPostingDispatchTask(sourceDocID)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task)
	return err
}
