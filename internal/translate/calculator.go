package translate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledgerbridge/internal/classify"
	"github.com/odyssey-erp/ledgerbridge/internal/ledger"
	"github.com/odyssey-erp/ledgerbridge/internal/rates"
	"github.com/odyssey-erp/ledgerbridge/internal/rules"
)

// RateResolver is satisfied by rates.Resolver.
type RateResolver interface {
	Resolve(ctx context.Context, from, to string, onDate time.Time, preferredType rates.RateType) (rates.Resolved, error)
}

// AccountClassifier is satisfied by classify.Classifier.
type AccountClassifier interface {
	Classify(ctx context.Context, accountID int64) (classify.Classification, error)
}

// Config tunes difference allocation.
type Config struct {
	// HedgeRedirectPct is the portion of a CTA difference redirected to an
	// active hedge's OCI bucket, expressed 0-100. The effectiveness ratio of
	// the relationship caps the redirect.
	HedgeRedirectPct decimal.Decimal
}

// Calculator converts one line's amounts into a target ledger's currency and
// splits the translation difference into P&L / OCI / CTA components.
type Calculator struct {
	resolver   RateResolver
	classifier AccountClassifier
	hedges     HedgeLookup
	cfg        Config
	logger     *slog.Logger
}

func NewCalculator(resolver RateResolver, classifier AccountClassifier, hedges HedgeLookup, cfg Config, logger *slog.Logger) *Calculator {
	if hedges == nil {
		hedges = NoHedges{}
	}
	if cfg.HedgeRedirectPct.IsZero() {
		cfg.HedgeRedirectPct = decimal.NewFromInt(100)
	}
	return &Calculator{resolver: resolver, classifier: classifier, hedges: hedges, cfg: cfg, logger: logger}
}

// Translate applies the matched rule to the line for the target ledger.
// EXCLUDE rules short-circuit to a dropped result before any lookups.
func (c *Calculator) Translate(ctx context.Context, line Line, matched rules.Matched, target ledger.Ledger, docDate time.Time) (Result, error) {
	if c == nil || c.resolver == nil || c.classifier == nil {
		return Result{}, fmt.Errorf("translate: calculator not initialised")
	}
	rule := matched.Rule

	if rule.Kind == rules.KindExclude {
		return Result{Dropped: true, RuleID: ruleID(rule), RuleKind: rule.Kind, Specificity: matched.Specificity}, nil
	}

	classification, err := c.classifier.Classify(ctx, line.AccountID)
	if err != nil {
		return Result{}, err
	}

	resolved, err := c.resolveRate(ctx, line, classification.Method(), target, docDate)
	if err != nil {
		return Result{}, err
	}

	original := line.Debit.Sub(line.Credit)
	translated := original.Mul(resolved.Value)
	switch rule.Kind {
	case rules.KindTranslate:
		translated = translated.Mul(rule.Factor)
	case rules.KindAdjust:
		if !rule.Factor.IsZero() {
			translated = translated.Mul(rule.Factor)
		}
		translated = translated.Add(rule.Adjustment)
	}
	translated = translated.Round(2)

	accountID := line.AccountID
	if rule.Kind == rules.KindReclassify && rule.TargetAccount != nil {
		accountID = *rule.TargetAccount
	}

	difference := translated.Sub(original)
	split, err := c.split(ctx, line, classification.Class, difference)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		AccountID:        accountID,
		OriginalCurrency: line.Currency,
		Currency:         target.BaseCurrency,
		Rate:             resolved,
		Class:            classification.Class,
		Method:           classification.Method(),
		Difference:       difference,
		Split:            split,
		RuleID:           ruleID(rule),
		RuleKind:         rule.Kind,
		Specificity:      matched.Specificity,
	}
	if translated.IsNegative() {
		result.Credit = translated.Neg()
	} else {
		result.Debit = translated
	}
	if line.Debit.IsPositive() {
		result.OriginalDebit = line.Debit
	}
	if line.Credit.IsPositive() {
		result.OriginalCredit = line.Credit
	}
	return result, nil
}

func (c *Calculator) resolveRate(ctx context.Context, line Line, method classify.TranslationMethod, target ledger.Ledger, docDate time.Time) (rates.Resolved, error) {
	if line.Currency == target.BaseCurrency {
		return rates.Resolved{
			FromCurrency: line.Currency,
			ToCurrency:   target.BaseCurrency,
			Value:        decimal.NewFromInt(1),
			RateDate:     docDate,
		}, nil
	}
	switch method {
	case classify.MethodAverageRate:
		// Period-average rate keyed by the same posting period.
		return c.resolver.Resolve(ctx, line.Currency, target.BaseCurrency, docDate, rates.TypeAverage)
	case classify.MethodHistoricalRate:
		if line.HistoricalRate != nil {
			date := docDate
			if line.HistoricalDate != nil {
				date = *line.HistoricalDate
			}
			return rates.Resolved{
				FromCurrency: line.Currency,
				ToCurrency:   target.BaseCurrency,
				Type:         rates.TypeHistorical,
				Value:        *line.HistoricalRate,
				RateDate:     date,
			}, nil
		}
		// Without an explicit upstream rate the document's posting date
		// approximates origination.
		return c.resolver.Resolve(ctx, line.Currency, target.BaseCurrency, docDate, rates.TypeHistorical)
	default:
		return c.resolver.Resolve(ctx, line.Currency, target.BaseCurrency, docDate, rates.TypeClosing)
	}
}

// split allocates the translation difference. Monetary and revenue/expense
// differences hit P&L; equity and non-monetary differences accumulate in
// CTA, except the portion redirected to an active net-investment hedge's
// OCI bucket.
func (c *Calculator) split(ctx context.Context, line Line, class classify.MonetaryClass, difference decimal.Decimal) (Split, error) {
	if difference.IsZero() {
		return Split{}, nil
	}
	switch class {
	case classify.ClassMonetary, classify.ClassRevenueExpense:
		return Split{PnL: difference}, nil
	default:
		rel, ok, err := c.hedges.ActiveRelationship(ctx, line.CompanyID, line.AccountID)
		if err != nil {
			return Split{}, fmt.Errorf("translate: hedge lookup: %w", err)
		}
		if !ok || !rel.Active {
			return Split{CTA: difference}, nil
		}
		portion := c.cfg.HedgeRedirectPct.Div(decimal.NewFromInt(100))
		if rel.Effectiveness.IsPositive() && rel.Effectiveness.LessThan(portion) {
			portion = rel.Effectiveness
		}
		oci := difference.Mul(portion).Round(2)
		c.log().Debug("hedge redirect applied",
			slog.String("hedge", rel.ID),
			slog.Int64("account", line.AccountID),
			slog.String("oci", oci.String()))
		return Split{OCI: oci, CTA: difference.Sub(oci)}, nil
	}
}

func (c *Calculator) log() *slog.Logger {
	if c != nil && c.logger != nil {
		return c.logger.With(slog.String("component", "translation_calculator"))
	}
	return slog.Default().With(slog.String("component", "translation_calculator"))
}

func ruleID(rule rules.Rule) *int64 {
	if rule.ID == 0 {
		return nil
	}
	id := rule.ID
	return &id
}
