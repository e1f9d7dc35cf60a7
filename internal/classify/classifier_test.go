package classify

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type stubRepo struct {
	classifications map[int64]Classification
}

func (s *stubRepo) Get(_ context.Context, accountID int64) (Classification, error) {
	c, ok := s.classifications[accountID]
	if !ok {
		return Classification{}, fmt.Errorf("%w: account %d", ErrUnclassifiedAccount, accountID)
	}
	return c, nil
}

func TestMethodDefaultsPerClass(t *testing.T) {
	cases := []struct {
		class  MonetaryClass
		method TranslationMethod
	}{
		{ClassMonetary, MethodCurrentRate},
		{ClassNonMonetary, MethodHistoricalRate},
		{ClassEquity, MethodHistoricalRate},
		{ClassRevenueExpense, MethodAverageRate},
	}
	for _, tc := range cases {
		got := Classification{Class: tc.class}.Method()
		if got != tc.method {
			t.Errorf("class %s: expected %s, got %s", tc.class, tc.method, got)
		}
	}
}

func TestMethodOverrideWins(t *testing.T) {
	override := MethodCurrentRate
	c := Classification{Class: ClassNonMonetary, MethodOverride: &override}
	if c.Method() != MethodCurrentRate {
		t.Fatalf("expected override CURRENT_RATE, got %s", c.Method())
	}
}

func TestClassifyUnknownAccountFails(t *testing.T) {
	classifier := NewClassifier(&stubRepo{})

	_, err := classifier.Classify(context.Background(), 4242)
	if !errors.Is(err, ErrUnclassifiedAccount) {
		t.Fatalf("expected ErrUnclassifiedAccount, got %v", err)
	}
}

func TestClassifyReturnsStoredRecord(t *testing.T) {
	classifier := NewClassifier(&stubRepo{classifications: map[int64]Classification{
		1000: {AccountID: 1000, AccountGroup: "CASH", Class: ClassMonetary},
	}})

	c, err := classifier.Classify(context.Background(), 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Class != ClassMonetary || c.AccountGroup != "CASH" {
		t.Fatalf("unexpected classification: %+v", c)
	}
}
