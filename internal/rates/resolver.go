package rates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRateNotFound indicates no eligible rate exists for a required
// translation. Missing rates are a hard failure, never an implicit 1.0.
var ErrRateNotFound = errors.New("rates: no eligible rate for pair")

// Resolver selects the applicable exchange rate for a currency pair,
// date and preferred rate type.
type Resolver struct {
	repo     Repository
	logger   *slog.Logger
	fallback RateType
}

// ResolverOption customises resolver behaviour.
type ResolverOption func(*Resolver)

// WithFallbackType enables the opt-in policy of substituting another rate
// type when the preferred one has no eligible rate of any type. Each use is
// logged; leaving it unset keeps missing rates fatal.
func WithFallbackType(t RateType) ResolverOption {
	return func(r *Resolver) {
		r.fallback = t
	}
}

func NewResolver(repo Repository, logger *slog.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{repo: repo, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve picks the most recent rate with effective date <= onDate,
// preferring preferredType, else any type ordered by (effective date desc,
// type priority). Identical currencies short-circuit to 1.0.
func (r *Resolver) Resolve(ctx context.Context, from, to string, onDate time.Time, preferredType RateType) (Resolved, error) {
	if r == nil || r.repo == nil {
		return Resolved{}, fmt.Errorf("rates: resolver not initialised")
	}
	if from == "" || to == "" {
		return Resolved{}, fmt.Errorf("rates: currency pair required")
	}
	if from == to {
		return Resolved{
			FromCurrency: from,
			ToCurrency:   to,
			Type:         preferredType,
			Value:        decimal.NewFromInt(1),
			RateDate:     onDate,
		}, nil
	}

	eligible, err := r.repo.ListEligible(ctx, from, to, onDate)
	if err != nil {
		return Resolved{}, err
	}
	if len(eligible) == 0 {
		return Resolved{}, fmt.Errorf("%w: %s/%s on %s", ErrRateNotFound, from, to, onDate.Format("2006-01-02"))
	}

	// One ordering for every branch, independent of repository order: newest
	// effective date first, then type priority.
	sorted := make([]Rate, len(eligible))
	copy(sorted, eligible)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].EffectiveDate.Equal(sorted[j].EffectiveDate) {
			return sorted[i].EffectiveDate.After(sorted[j].EffectiveDate)
		}
		return typePriority[sorted[i].Type] < typePriority[sorted[j].Type]
	})

	if best, ok := pick(sorted, preferredType); ok {
		return toResolved(best, false), nil
	}
	if r.fallback != "" && r.fallback != preferredType {
		if best, ok := pick(sorted, r.fallback); ok {
			r.log().Warn("rate fallback applied",
				slog.String("pair", from+"/"+to),
				slog.String("preferred", string(preferredType)),
				slog.String("fallback", string(r.fallback)),
				slog.String("on", onDate.Format("2006-01-02")))
			return toResolved(best, true), nil
		}
	}
	return toResolved(sorted[0], false), nil
}

// pick returns the first rate of the wanted type; the slice is already
// ordered newest first.
func pick(sorted []Rate, t RateType) (Rate, bool) {
	for _, rate := range sorted {
		if rate.Type == t {
			return rate, true
		}
	}
	return Rate{}, false
}

func toResolved(rate Rate, fallback bool) Resolved {
	return Resolved{
		FromCurrency: rate.FromCurrency,
		ToCurrency:   rate.ToCurrency,
		Type:         rate.Type,
		Value:        rate.Value,
		RateDate:     rate.EffectiveDate,
		Fallback:     fallback,
	}
}

func (r *Resolver) log() *slog.Logger {
	if r != nil && r.logger != nil {
		return r.logger.With(slog.String("component", "rate_resolver"))
	}
	return slog.Default().With(slog.String("component", "rate_resolver"))
}
