package rates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type stubRepo struct {
	rates []Rate
	pairs [][2]string
	err   error
}

func (s *stubRepo) ListEligible(context.Context, string, string, time.Time) ([]Rate, error) {
	return s.rates, s.err
}

func (s *stubRepo) Pairs(context.Context) ([][2]string, error) {
	return s.pairs, s.err
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveSameCurrencyIsIdentity(t *testing.T) {
	resolver := NewResolver(&stubRepo{}, nil)

	resolved, err := resolver.Resolve(context.Background(), "USD", "USD", day(2026, 8, 15), TypeClosing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resolved.Value.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected rate 1, got %s", resolved.Value)
	}
}

func TestResolvePrefersRequestedType(t *testing.T) {
	resolver := NewResolver(&stubRepo{rates: []Rate{
		{Type: TypeClosing, Value: decimal.NewFromFloat(0.92), EffectiveDate: day(2026, 8, 15)},
		{Type: TypeAverage, Value: decimal.NewFromFloat(0.91), EffectiveDate: day(2026, 8, 15)},
	}}, nil)

	resolved, err := resolver.Resolve(context.Background(), "USD", "EUR", day(2026, 8, 15), TypeAverage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Type != TypeAverage || !resolved.Value.Equal(decimal.NewFromFloat(0.91)) {
		t.Fatalf("expected AVERAGE 0.91, got %s %s", resolved.Type, resolved.Value)
	}
	if resolved.Fallback {
		t.Fatal("direct hit must not be flagged as fallback")
	}
}

func TestResolveUsesConfiguredFallbackType(t *testing.T) {
	resolver := NewResolver(&stubRepo{rates: []Rate{
		{Type: TypeClosing, Value: decimal.NewFromFloat(0.92), EffectiveDate: day(2026, 8, 15)},
	}}, nil, WithFallbackType(TypeClosing))

	resolved, err := resolver.Resolve(context.Background(), "USD", "EUR", day(2026, 8, 15), TypeHistorical)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Type != TypeClosing || !resolved.Fallback {
		t.Fatalf("expected fallback CLOSING, got %s fallback=%v", resolved.Type, resolved.Fallback)
	}
}

func TestResolveAnyTypePicksNewestThenPriority(t *testing.T) {
	resolver := NewResolver(&stubRepo{rates: []Rate{
		{Type: TypeSpot, Value: decimal.NewFromFloat(0.95), EffectiveDate: day(2026, 8, 10)},
		{Type: TypeAverage, Value: decimal.NewFromFloat(0.91), EffectiveDate: day(2026, 8, 10)},
		{Type: TypeSpot, Value: decimal.NewFromFloat(0.94), EffectiveDate: day(2026, 8, 1)},
	}}, nil)

	resolved, err := resolver.Resolve(context.Background(), "USD", "EUR", day(2026, 8, 15), TypeClosing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Same effective date: AVERAGE outranks SPOT.
	if resolved.Type != TypeAverage {
		t.Fatalf("expected AVERAGE by type priority, got %s", resolved.Type)
	}
}

func TestResolvePreferredTypeIgnoresRepositoryOrder(t *testing.T) {
	// Oldest rate listed first: selection must not depend on slice order.
	resolver := NewResolver(&stubRepo{rates: []Rate{
		{Type: TypeClosing, Value: decimal.NewFromFloat(0.90), EffectiveDate: day(2026, 8, 1)},
		{Type: TypeClosing, Value: decimal.NewFromFloat(0.92), EffectiveDate: day(2026, 8, 15)},
	}}, nil)

	resolved, err := resolver.Resolve(context.Background(), "USD", "EUR", day(2026, 8, 15), TypeClosing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resolved.Value.Equal(decimal.NewFromFloat(0.92)) {
		t.Fatalf("expected newest CLOSING 0.92, got %s from %s", resolved.Value, resolved.RateDate)
	}
}

func TestResolveMissingRateIsHardFailure(t *testing.T) {
	resolver := NewResolver(&stubRepo{}, nil)

	_, err := resolver.Resolve(context.Background(), "USD", "CHF", day(2026, 8, 15), TypeClosing)
	if !errors.Is(err, ErrRateNotFound) {
		t.Fatalf("expected ErrRateNotFound, got %v", err)
	}
}
