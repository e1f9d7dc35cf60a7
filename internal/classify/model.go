package classify

import "time"

// MonetaryClass buckets a GL account for translation purposes.
type MonetaryClass string

const (
	ClassMonetary       MonetaryClass = "MONETARY"
	ClassNonMonetary    MonetaryClass = "NON_MONETARY"
	ClassEquity         MonetaryClass = "EQUITY"
	ClassRevenueExpense MonetaryClass = "REVENUE_EXPENSE"
)

// TranslationMethod selects which rate type translates an account's amounts.
type TranslationMethod string

const (
	MethodCurrentRate    TranslationMethod = "CURRENT_RATE"
	MethodHistoricalRate TranslationMethod = "HISTORICAL_RATE"
	MethodAverageRate    TranslationMethod = "AVERAGE_RATE"
)

// defaultMethod maps each monetary class to its standard translation method.
// An explicit per-account override always wins.
var defaultMethod = map[MonetaryClass]TranslationMethod{
	ClassMonetary:       MethodCurrentRate,
	ClassNonMonetary:    MethodHistoricalRate,
	ClassEquity:         MethodHistoricalRate,
	ClassRevenueExpense: MethodAverageRate,
}

// Classification is the stored per-account record.
type Classification struct {
	AccountID      int64
	AccountGroup   string
	Class          MonetaryClass
	MethodOverride *TranslationMethod
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Method returns the effective translation method for the account.
func (c Classification) Method() TranslationMethod {
	if c.MethodOverride != nil && *c.MethodOverride != "" {
		return *c.MethodOverride
	}
	return defaultMethod[c.Class]
}
