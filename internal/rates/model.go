package rates

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateType enumerates the supported exchange rate categories.
type RateType string

const (
	TypeClosing    RateType = "CLOSING"
	TypeAverage    RateType = "AVERAGE"
	TypeHistorical RateType = "HISTORICAL"
	TypeSpot       RateType = "SPOT"
)

// typePriority breaks ties when no rate of the preferred type exists.
// Lower value wins.
var typePriority = map[RateType]int{
	TypeClosing:    0,
	TypeAverage:    1,
	TypeHistorical: 2,
	TypeSpot:       3,
}

// Rate is one configured exchange rate row.
type Rate struct {
	ID            int64
	FromCurrency  string
	ToCurrency    string
	EffectiveDate time.Time
	Type          RateType
	Value         decimal.Decimal
	Source        string
	Official      bool
	CreatedAt     time.Time
}

// Resolved carries the rate actually applied to a translation, including
// provenance for the audit trail.
type Resolved struct {
	FromCurrency string
	ToCurrency   string
	Type         RateType
	Value        decimal.Decimal
	RateDate     time.Time
	Fallback     bool
}
