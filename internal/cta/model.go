package cta

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledgerbridge/internal/ledger"
)

// Rollup carries the cumulative translation adjustment balances for one
// (entity, ledger, accounting standard, fiscal period). It is derived and
// periodically recomputed, never written per transaction.
type Rollup struct {
	CompanyID    int64
	LedgerID     int64
	Principle    ledger.Principle
	FiscalPeriod string
	Opening      decimal.Decimal
	Movement     decimal.Decimal
	Closing      decimal.Decimal
	ComputedAt   time.Time
}

// Movement is one period's aggregated CTA component for a company/ledger.
type Movement struct {
	CompanyID    int64
	LedgerID     int64
	FiscalPeriod string
	Amount       decimal.Decimal
}
