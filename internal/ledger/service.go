package ledger

import (
	"context"
	"fmt"

	"golang.org/x/text/currency"
)

// Service exposes validated ledger reference data to the engine.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Leading returns the active leading ledger.
func (s *Service) Leading(ctx context.Context) (Ledger, error) {
	if s == nil || s.repo == nil {
		return Ledger{}, fmt.Errorf("ledger service not initialised")
	}
	l, err := s.repo.Leading(ctx)
	if err != nil {
		return Ledger{}, err
	}
	if err := validateCurrencies(l); err != nil {
		return Ledger{}, err
	}
	return l, nil
}

// Targets returns every active non-leading ledger with validated currencies.
func (s *Service) Targets(ctx context.Context) ([]Ledger, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("ledger service not initialised")
	}
	targets, err := s.repo.Targets(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range targets {
		if err := validateCurrencies(l); err != nil {
			return nil, err
		}
	}
	return targets, nil
}

// Get fetches one ledger by id.
func (s *Service) Get(ctx context.Context, id int64) (Ledger, error) {
	if s == nil || s.repo == nil {
		return Ledger{}, fmt.Errorf("ledger service not initialised")
	}
	return s.repo.Get(ctx, id)
}

// List returns all ledgers regardless of status.
func (s *Service) List(ctx context.Context) ([]Ledger, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("ledger service not initialised")
	}
	return s.repo.List(ctx)
}

func validateCurrencies(l Ledger) error {
	codes := []string{l.BaseCurrency}
	if l.SecondCurrency != nil {
		codes = append(codes, *l.SecondCurrency)
	}
	if l.ThirdCurrency != nil {
		codes = append(codes, *l.ThirdCurrency)
	}
	for _, code := range codes {
		if _, err := currency.ParseISO(code); err != nil {
			return fmt.Errorf("ledger %s: invalid currency %q: %w", l.Code, code, err)
		}
	}
	return nil
}
