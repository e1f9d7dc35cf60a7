package translate

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledgerbridge/internal/classify"
	"github.com/odyssey-erp/ledgerbridge/internal/rates"
	"github.com/odyssey-erp/ledgerbridge/internal/rules"
)

// Line is the translation view of one source document line.
type Line struct {
	AccountID    int64
	AccountGroup string
	CompanyID    int64
	Debit        decimal.Decimal
	Credit       decimal.Decimal
	Currency     string
	// HistoricalRate, when supplied upstream, overrides rate resolution for
	// historical-method accounts.
	HistoricalRate *decimal.Decimal
	HistoricalDate *time.Time
}

// Split allocates a translation difference across reporting buckets.
type Split struct {
	PnL decimal.Decimal
	OCI decimal.Decimal
	CTA decimal.Decimal
}

// Result is the outcome of translating one line for one target ledger.
// It is ephemeral: consumed immediately to build the target line and the
// audit record.
type Result struct {
	// Dropped is set for EXCLUDE rules; no target line is produced.
	Dropped bool

	AccountID        int64
	OriginalDebit    decimal.Decimal
	OriginalCredit   decimal.Decimal
	OriginalCurrency string
	Debit            decimal.Decimal
	Credit           decimal.Decimal
	Currency         string

	Rate   rates.Resolved
	Class  classify.MonetaryClass
	Method classify.TranslationMethod

	Difference decimal.Decimal
	Split      Split

	RuleID      *int64
	RuleKind    rules.Kind
	Specificity rules.Specificity
}
