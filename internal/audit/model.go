package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Outcome records how one (source document, target ledger) attempt ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailed  Outcome = "FAILED"
	OutcomePartial Outcome = "PARTIAL"
)

// DocumentStatus is derived from the audit log and posted target documents,
// never stored as a mutable counter on the source document.
type DocumentStatus string

const (
	StatusPending  DocumentStatus = "PENDING"
	StatusComplete DocumentStatus = "COMPLETE"
	StatusPartial  DocumentStatus = "PARTIAL"
	StatusFailed   DocumentStatus = "FAILED"
)

// Entry is one append-only posting audit record. Entries are never updated
// or deleted.
type Entry struct {
	ID          int64
	SourceDocID uuid.UUID
	LedgerID    int64
	Outcome     Outcome
	ErrorDetail string
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Meta        map[string]any
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Report is the completeness view for one source document.
type Report struct {
	SourceDocID     uuid.UUID
	Status          DocumentStatus
	ExpectedLedgers []int64
	PostedLedgers   []int64
	MissingLedgers  []int64
	ExtraLedgers    []int64
	Attempts        int
}
