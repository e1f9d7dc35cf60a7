package cta

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledgerbridge/internal/ledger"
)

// LedgerSource resolves ledger principles for rollup rows.
type LedgerSource interface {
	List(ctx context.Context) ([]ledger.Ledger, error)
}

// Service recomputes CTA rollups from the persisted target lines. The
// rollup is a derived view; rebuilding any period is safe and idempotent.
type Service struct {
	repo    Repository
	ledgers LedgerSource
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(repo Repository, ledgers LedgerSource, logger *slog.Logger) *Service {
	return &Service{repo: repo, ledgers: ledgers, logger: logger, now: time.Now}
}

// WithClock overrides the clock for deterministic tests.
func (s *Service) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Rebuild recomputes opening/movement/closing CTA balances for every
// (company, ledger) pair through the given fiscal period (format 2006-01).
func (s *Service) Rebuild(ctx context.Context, fiscalPeriod string) ([]Rollup, error) {
	if s == nil || s.repo == nil || s.ledgers == nil {
		return nil, fmt.Errorf("cta: service not initialised")
	}
	if _, err := time.Parse("2006-01", fiscalPeriod); err != nil {
		return nil, fmt.Errorf("cta: invalid fiscal period %q", fiscalPeriod)
	}
	movements, err := s.repo.MovementsThrough(ctx, fiscalPeriod)
	if err != nil {
		return nil, err
	}
	ledgers, err := s.ledgers.List(ctx)
	if err != nil {
		return nil, err
	}
	principles := make(map[int64]ledger.Principle, len(ledgers))
	for _, l := range ledgers {
		principles[l.ID] = l.Principle
	}

	type key struct {
		company int64
		ledger  int64
	}
	opening := make(map[key]decimal.Decimal)
	movement := make(map[key]decimal.Decimal)
	for _, m := range movements {
		k := key{company: m.CompanyID, ledger: m.LedgerID}
		if m.FiscalPeriod == fiscalPeriod {
			movement[k] = movement[k].Add(m.Amount)
		} else {
			opening[k] = opening[k].Add(m.Amount)
		}
	}

	keys := make(map[key]struct{}, len(opening)+len(movement))
	for k := range opening {
		keys[k] = struct{}{}
	}
	for k := range movement {
		keys[k] = struct{}{}
	}
	computedAt := s.now().UTC()
	rollups := make([]Rollup, 0, len(keys))
	for k := range keys {
		open := opening[k]
		move := movement[k]
		rollups = append(rollups, Rollup{
			CompanyID:    k.company,
			LedgerID:     k.ledger,
			Principle:    principles[k.ledger],
			FiscalPeriod: fiscalPeriod,
			Opening:      open,
			Movement:     move,
			Closing:      open.Add(move),
			ComputedAt:   computedAt,
		})
	}
	sort.Slice(rollups, func(i, j int) bool {
		if rollups[i].CompanyID != rollups[j].CompanyID {
			return rollups[i].CompanyID < rollups[j].CompanyID
		}
		return rollups[i].LedgerID < rollups[j].LedgerID
	})

	if err := s.repo.ReplaceRollups(ctx, fiscalPeriod, rollups); err != nil {
		return nil, err
	}
	s.log().Info("cta rollup rebuilt",
		slog.String("period", fiscalPeriod),
		slog.Int("rows", len(rollups)))
	return rollups, nil
}

// ForPeriod reads the stored rollups for one fiscal period.
func (s *Service) ForPeriod(ctx context.Context, fiscalPeriod string) ([]Rollup, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("cta: service not initialised")
	}
	return s.repo.RollupsForPeriod(ctx, fiscalPeriod)
}

func (s *Service) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger.With(slog.String("component", "cta_rollup"))
	}
	return slog.Default().With(slog.String("component", "cta_rollup"))
}
