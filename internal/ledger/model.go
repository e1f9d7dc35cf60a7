package ledger

import "time"

// Principle tags a ledger with the accounting standard it represents.
type Principle string

const (
	PrincipleLocalGAAP  Principle = "LOCAL_GAAP"
	PrincipleIFRS       Principle = "IFRS"
	PrincipleTax        Principle = "TAX"
	PrincipleManagement Principle = "MANAGEMENT"
)

// Ledger describes one book of record. Exactly one active ledger is leading;
// the engine derives postings into every other active ledger.
type Ledger struct {
	ID              int64
	Code            string
	Description     string
	IsLeading       bool
	BaseCurrency    string
	Principle       Principle
	SecondCurrency  *string
	ThirdCurrency   *string
	IsConsolidation bool
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
