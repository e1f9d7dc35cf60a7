package rules

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the closed set of derivation behaviours.
type Kind string

const (
	// KindCopy replicates the line with currency conversion only.
	KindCopy Kind = "COPY"
	// KindTranslate converts currency and applies the rule's factor.
	KindTranslate Kind = "TRANSLATE"
	// KindExclude drops the line from the target ledger.
	KindExclude Kind = "EXCLUDE"
	// KindReclassify books the value to a different account.
	KindReclassify Kind = "RECLASSIFY"
	// KindAdjust applies a documented fixed adjustment on top of translation.
	KindAdjust Kind = "ADJUST"
)

// Specificity ranks how a rule matched; exact account beats account group,
// which beats the built-in default.
type Specificity int

const (
	SpecificityDefault Specificity = iota
	SpecificityGroup
	SpecificityAccount
)

// Rule is one configured derivation rule. Filters are either an exact
// account or an account-group pattern; never both.
type Rule struct {
	ID             int64
	SourceLedgerID int64
	TargetLedgerID int64
	AccountID      *int64
	AccountGroup   *string
	Kind           Kind
	TargetAccount  *int64
	Factor         decimal.Decimal
	Adjustment     decimal.Decimal
	Rationale      string
	Active         bool
	Priority       int
	CreatedAt      time.Time
}

// Matched pairs a resolved rule with the specificity it won at, so audit
// entries can explain why a line was transformed the way it was.
type Matched struct {
	Rule        Rule
	Specificity Specificity
}

// DefaultCopy is the built-in rule applied when no configured rule matches.
func DefaultCopy(sourceLedgerID, targetLedgerID int64) Matched {
	return Matched{
		Rule: Rule{
			SourceLedgerID: sourceLedgerID,
			TargetLedgerID: targetLedgerID,
			Kind:           KindCopy,
			Factor:         decimal.NewFromInt(1),
			Active:         true,
		},
		Specificity: SpecificityDefault,
	}
}
