package cta

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledgerbridge/internal/ledger"
)

type stubRepo struct {
	movements []Movement
	stored    []Rollup
	replaced  string
}

func (s *stubRepo) MovementsThrough(context.Context, string) ([]Movement, error) {
	return s.movements, nil
}

func (s *stubRepo) ReplaceRollups(_ context.Context, fiscalPeriod string, rollups []Rollup) error {
	s.replaced = fiscalPeriod
	s.stored = rollups
	return nil
}

func (s *stubRepo) RollupsForPeriod(context.Context, string) ([]Rollup, error) {
	return s.stored, nil
}

type stubLedgers struct{}

func (stubLedgers) List(context.Context) ([]ledger.Ledger, error) {
	return []ledger.Ledger{
		{ID: 2, Code: "IFRS_EUR", Principle: ledger.PrincipleIFRS},
		{ID: 3, Code: "TAX_USD", Principle: ledger.PrincipleTax},
	}, nil
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRebuildSplitsOpeningAndMovement(t *testing.T) {
	repo := &stubRepo{movements: []Movement{
		{CompanyID: 1, LedgerID: 2, FiscalPeriod: "2026-06", Amount: amt("-30.00")},
		{CompanyID: 1, LedgerID: 2, FiscalPeriod: "2026-07", Amount: amt("-50.00")},
		{CompanyID: 1, LedgerID: 2, FiscalPeriod: "2026-08", Amount: amt("-80.00")},
	}}
	svc := NewService(repo, stubLedgers{}, nil)
	svc.WithClock(func() time.Time {
		return time.Date(2026, 8, 31, 2, 0, 0, 0, time.UTC)
	})

	rollups, err := svc.Rebuild(context.Background(), "2026-08")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rollups) != 1 {
		t.Fatalf("expected one rollup, got %d", len(rollups))
	}
	r := rollups[0]
	if !r.Opening.Equal(amt("-80.00")) {
		t.Fatalf("expected opening -80.00, got %s", r.Opening)
	}
	if !r.Movement.Equal(amt("-80.00")) {
		t.Fatalf("expected movement -80.00, got %s", r.Movement)
	}
	if !r.Closing.Equal(amt("-160.00")) {
		t.Fatalf("expected closing -160.00, got %s", r.Closing)
	}
	if r.Principle != ledger.PrincipleIFRS {
		t.Fatalf("expected IFRS principle, got %s", r.Principle)
	}
	if repo.replaced != "2026-08" {
		t.Fatalf("expected rollups replaced for 2026-08, got %q", repo.replaced)
	}
}

func TestRebuildSortsByCompanyThenLedger(t *testing.T) {
	repo := &stubRepo{movements: []Movement{
		{CompanyID: 2, LedgerID: 2, FiscalPeriod: "2026-08", Amount: amt("5.00")},
		{CompanyID: 1, LedgerID: 3, FiscalPeriod: "2026-08", Amount: amt("3.00")},
		{CompanyID: 1, LedgerID: 2, FiscalPeriod: "2026-08", Amount: amt("1.00")},
	}}
	svc := NewService(repo, stubLedgers{}, nil)

	rollups, err := svc.Rebuild(context.Background(), "2026-08")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rollups) != 3 {
		t.Fatalf("expected three rollups, got %d", len(rollups))
	}
	got := [3][2]int64{
		{rollups[0].CompanyID, rollups[0].LedgerID},
		{rollups[1].CompanyID, rollups[1].LedgerID},
		{rollups[2].CompanyID, rollups[2].LedgerID},
	}
	want := [3][2]int64{{1, 2}, {1, 3}, {2, 2}}
	if got != want {
		t.Fatalf("expected order %v, got %v", want, got)
	}
}

func TestRebuildRejectsInvalidPeriod(t *testing.T) {
	svc := NewService(&stubRepo{}, stubLedgers{}, nil)

	for _, period := range []string{"", "2026", "2026-13", "08-2026"} {
		if _, err := svc.Rebuild(context.Background(), period); err == nil {
			t.Fatalf("expected error for period %q", period)
		}
	}
}

func TestRebuildWithNoMovementsStoresNothing(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, stubLedgers{}, nil)

	rollups, err := svc.Rebuild(context.Background(), "2026-08")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rollups) != 0 {
		t.Fatalf("expected no rollups, got %d", len(rollups))
	}
	if repo.replaced != "2026-08" {
		t.Fatal("empty rebuild must still clear the period")
	}
}
