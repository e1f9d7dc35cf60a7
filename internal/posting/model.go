package posting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledgerbridge/internal/audit"
)

// SourceDocument is an immutable, already-balanced document in the leading
// ledger. The engine only reads it.
type SourceDocument struct {
	ID          uuid.UUID
	DocKey      string
	CompanyID   int64
	PostingDate time.Time
	Currency    string
	PostedAt    time.Time
	Lines       []SourceLine
}

// SourceLine is one debit-xor-credit line of the source document.
// Dimension references are carried through to target lines unchanged.
type SourceLine struct {
	ID              int64
	AccountID       int64
	AccountGroup    string
	Debit           decimal.Decimal
	Credit          decimal.Decimal
	Currency        string
	DimBusinessUnit *int64
	DimCostCenter   *int64
	DimLocation     *int64
	DimProductLine  *int64
	HistoricalRate  *decimal.Decimal
	HistoricalDate  *time.Time
}

// TargetDocument mirrors the source document's shape for one target ledger.
// It is persisted fully or not at all.
type TargetDocument struct {
	ID          uuid.UUID
	SourceDocID uuid.UUID
	LedgerID    int64
	CompanyID   int64
	PostingDate time.Time
	Currency    string
	CreatedAt   time.Time
	Lines       []TargetLine
}

// TargetLine is one derived line, including the translation components that
// feed the CTA rollup.
type TargetLine struct {
	ID              int64
	TargetDocID     uuid.UUID
	SourceLineID    int64
	AccountID       int64
	Debit           decimal.Decimal
	Credit          decimal.Decimal
	DimBusinessUnit *int64
	DimCostCenter   *int64
	DimLocation     *int64
	DimProductLine  *int64
	RateValue       decimal.Decimal
	RateDate        time.Time
	RateType        string
	RuleID          *int64
	RuleKind        string
	PnLComponent    decimal.Decimal
	OCIComponent    decimal.Decimal
	CTAComponent    decimal.Decimal
}

// LedgerResult is one ledger attempt's outcome within an orchestration run.
type LedgerResult struct {
	LedgerID    int64
	LedgerCode  string
	Success     bool
	TargetDocID uuid.UUID
	Err         string
	Duration    time.Duration
}

// Outcome summarises one Post invocation.
type Outcome struct {
	SourceDocID uuid.UUID
	Status      audit.DocumentStatus
	Expected    int
	Posted      int
	Attempted   int
	Results     []LedgerResult
}
