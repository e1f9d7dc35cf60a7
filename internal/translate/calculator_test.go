package translate

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledgerbridge/internal/classify"
	"github.com/odyssey-erp/ledgerbridge/internal/ledger"
	"github.com/odyssey-erp/ledgerbridge/internal/rates"
	"github.com/odyssey-erp/ledgerbridge/internal/rules"
)

type stubResolver struct {
	byType map[rates.RateType]decimal.Decimal
	calls  int
}

func (s *stubResolver) Resolve(_ context.Context, from, to string, onDate time.Time, preferredType rates.RateType) (rates.Resolved, error) {
	s.calls++
	value, ok := s.byType[preferredType]
	if !ok {
		return rates.Resolved{}, rates.ErrRateNotFound
	}
	return rates.Resolved{
		FromCurrency: from,
		ToCurrency:   to,
		Type:         preferredType,
		Value:        value,
		RateDate:     onDate,
	}, nil
}

type stubClassifier struct {
	classes map[int64]classify.Classification
}

func (s *stubClassifier) Classify(_ context.Context, accountID int64) (classify.Classification, error) {
	c, ok := s.classes[accountID]
	if !ok {
		return classify.Classification{}, classify.ErrUnclassifiedAccount
	}
	return c, nil
}

type fixedHedge struct {
	rel HedgeRelationship
	ok  bool
}

func (f fixedHedge) ActiveRelationship(context.Context, int64, int64) (HedgeRelationship, bool, error) {
	return f.rel, f.ok, nil
}

var (
	eurLedger = ledger.Ledger{ID: 2, Code: "IFRS_EUR", BaseCurrency: "EUR", Principle: ledger.PrincipleIFRS}
	usdLedger = ledger.Ledger{ID: 3, Code: "TAX_USD", BaseCurrency: "USD", Principle: ledger.PrincipleTax}
	docDate   = time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
)

func newTestCalculator(resolver RateResolver, classes map[int64]classify.Classification, hedges HedgeLookup) *Calculator {
	return NewCalculator(resolver, &stubClassifier{classes: classes}, hedges, Config{}, nil)
}

func monetary(accountID int64) map[int64]classify.Classification {
	return map[int64]classify.Classification{
		accountID: {AccountID: accountID, Class: classify.ClassMonetary},
	}
}

func TestTranslateSameCurrencyCopy(t *testing.T) {
	resolver := &stubResolver{}
	calc := newTestCalculator(resolver, monetary(1000), nil)

	res, err := calc.Translate(context.Background(), Line{
		AccountID: 1000,
		Debit:     decimal.NewFromInt(100),
		Currency:  "USD",
	}, rules.DefaultCopy(1, 3), usdLedger, docDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Debit.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected debit 100, got %s", res.Debit)
	}
	if !res.Difference.IsZero() {
		t.Fatalf("expected zero difference, got %s", res.Difference)
	}
	if resolver.calls != 0 {
		t.Fatalf("same-currency translation must not hit the resolver, got %d calls", resolver.calls)
	}
}

func TestTranslateMonetaryAtClosingRate(t *testing.T) {
	resolver := &stubResolver{byType: map[rates.RateType]decimal.Decimal{
		rates.TypeClosing: decimal.NewFromFloat(0.92),
	}}
	calc := newTestCalculator(resolver, monetary(1000), nil)

	res, err := calc.Translate(context.Background(), Line{
		AccountID: 1000,
		Debit:     decimal.NewFromInt(1000),
		Currency:  "USD",
	}, rules.DefaultCopy(1, 2), eurLedger, docDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Debit.Equal(decimal.RequireFromString("920.00")) {
		t.Fatalf("expected debit 920.00, got %s", res.Debit)
	}
	if res.Rate.Type != rates.TypeClosing {
		t.Fatalf("expected CLOSING rate, got %s", res.Rate.Type)
	}
	if !res.Difference.Equal(decimal.RequireFromString("-80.00")) {
		t.Fatalf("expected difference -80.00, got %s", res.Difference)
	}
	if !res.Split.PnL.Equal(res.Difference) || !res.Split.CTA.IsZero() {
		t.Fatalf("monetary difference must land in P&L: %+v", res.Split)
	}
}

func TestTranslateExcludeDropsLine(t *testing.T) {
	calc := newTestCalculator(&stubResolver{}, nil, nil)

	res, err := calc.Translate(context.Background(), Line{AccountID: 1000, Currency: "USD"}, rules.Matched{
		Rule: rules.Rule{ID: 7, Kind: rules.KindExclude, Active: true},
	}, eurLedger, docDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Dropped {
		t.Fatal("expected dropped result")
	}
	if res.RuleID == nil || *res.RuleID != 7 {
		t.Fatal("dropped result must carry the rule id")
	}
}

func TestTranslateReclassifySwapsAccount(t *testing.T) {
	target := int64(8800)
	calc := newTestCalculator(&stubResolver{}, monetary(1000), nil)

	res, err := calc.Translate(context.Background(), Line{
		AccountID: 1000,
		Debit:     decimal.NewFromInt(50),
		Currency:  "USD",
	}, rules.Matched{
		Rule: rules.Rule{ID: 9, Kind: rules.KindReclassify, TargetAccount: &target, Active: true},
	}, usdLedger, docDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.AccountID != 8800 {
		t.Fatalf("expected reclassified account 8800, got %d", res.AccountID)
	}
}

func TestTranslateAdjustAppliesFactorAndAdjustment(t *testing.T) {
	calc := newTestCalculator(&stubResolver{}, monetary(1000), nil)

	res, err := calc.Translate(context.Background(), Line{
		AccountID: 1000,
		Debit:     decimal.NewFromInt(100),
		Currency:  "USD",
	}, rules.Matched{
		Rule: rules.Rule{
			ID:         4,
			Kind:       rules.KindAdjust,
			Factor:     decimal.NewFromFloat(0.5),
			Adjustment: decimal.NewFromInt(10),
			Active:     true,
		},
	}, usdLedger, docDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 100 * 1.0 * 0.5 + 10
	if !res.Debit.Equal(decimal.RequireFromString("60.00")) {
		t.Fatalf("expected debit 60.00, got %s", res.Debit)
	}
}

func TestTranslateEquityDifferenceAccumulatesInCTA(t *testing.T) {
	resolver := &stubResolver{byType: map[rates.RateType]decimal.Decimal{
		rates.TypeHistorical: decimal.NewFromFloat(0.90),
	}}
	calc := newTestCalculator(resolver, map[int64]classify.Classification{
		3000: {AccountID: 3000, Class: classify.ClassEquity},
	}, nil)

	res, err := calc.Translate(context.Background(), Line{
		AccountID: 3000,
		Credit:    decimal.NewFromInt(1000),
		Currency:  "USD",
	}, rules.DefaultCopy(1, 2), eurLedger, docDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Credit.Equal(decimal.RequireFromString("900.00")) {
		t.Fatalf("expected credit 900.00, got %s", res.Credit)
	}
	if !res.Split.CTA.Equal(res.Difference) || !res.Split.PnL.IsZero() || !res.Split.OCI.IsZero() {
		t.Fatalf("equity difference must accumulate in CTA: %+v", res.Split)
	}
}

func TestTranslateHedgeRedirectsToOCI(t *testing.T) {
	resolver := &stubResolver{byType: map[rates.RateType]decimal.Decimal{
		rates.TypeHistorical: decimal.NewFromFloat(0.90),
	}}
	calc := newTestCalculator(resolver, map[int64]classify.Classification{
		1500: {AccountID: 1500, Class: classify.ClassNonMonetary},
	}, fixedHedge{
		rel: HedgeRelationship{ID: "H1", OCIAccountID: 9100, Effectiveness: decimal.NewFromFloat(0.8), Active: true},
		ok:  true,
	})

	res, err := calc.Translate(context.Background(), Line{
		AccountID: 1500,
		CompanyID: 1,
		Debit:     decimal.NewFromInt(1000),
		Currency:  "USD",
	}, rules.DefaultCopy(1, 2), eurLedger, docDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Difference -100; effectiveness 0.8 caps the redirect.
	if !res.Split.OCI.Equal(decimal.RequireFromString("-80.00")) {
		t.Fatalf("expected OCI -80.00, got %s", res.Split.OCI)
	}
	if !res.Split.CTA.Equal(decimal.RequireFromString("-20.00")) {
		t.Fatalf("expected CTA -20.00, got %s", res.Split.CTA)
	}
}

func TestTranslateExplicitHistoricalRateSkipsResolver(t *testing.T) {
	resolver := &stubResolver{}
	historical := decimal.NewFromFloat(0.85)
	calc := newTestCalculator(resolver, map[int64]classify.Classification{
		1500: {AccountID: 1500, Class: classify.ClassNonMonetary},
	}, nil)

	res, err := calc.Translate(context.Background(), Line{
		AccountID:      1500,
		Debit:          decimal.NewFromInt(200),
		Currency:       "USD",
		HistoricalRate: &historical,
	}, rules.DefaultCopy(1, 2), eurLedger, docDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Debit.Equal(decimal.RequireFromString("170.00")) {
		t.Fatalf("expected debit 170.00, got %s", res.Debit)
	}
	if resolver.calls != 0 {
		t.Fatalf("explicit historical rate must bypass the resolver, got %d calls", resolver.calls)
	}
}

func TestTranslateMissingRateFailsLedgerAttempt(t *testing.T) {
	calc := newTestCalculator(&stubResolver{}, monetary(1000), nil)

	_, err := calc.Translate(context.Background(), Line{
		AccountID: 1000,
		Debit:     decimal.NewFromInt(10),
		Currency:  "USD",
	}, rules.DefaultCopy(1, 2), eurLedger, docDate)
	if err == nil {
		t.Fatal("expected missing-rate error")
	}
}
