package rates

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Warning describes one advisory inconsistency found by the triangular
// check. Warnings never block posting.
type Warning struct {
	Base     string
	Via      string
	Target   string
	Implied  decimal.Decimal
	Direct   decimal.Decimal
	Relative decimal.Decimal
}

func (w Warning) String() string {
	return fmt.Sprintf("triangular mismatch %s->%s->%s implied=%s direct=%s deviation=%s%%",
		w.Base, w.Via, w.Target, w.Implied.StringFixed(6), w.Direct.StringFixed(6),
		w.Relative.Mul(decimal.NewFromInt(100)).StringFixed(2))
}

// Validator cross-checks configured rates for triangular arbitrage
// consistency: base->X followed by X->Y should approximate base->Y.
type Validator struct {
	resolver *Resolver
	repo     Repository
	// tolerance is the maximum accepted relative deviation.
	tolerance decimal.Decimal
}

func NewValidator(resolver *Resolver, repo Repository, tolerance decimal.Decimal) *Validator {
	if tolerance.LessThanOrEqual(decimal.Zero) {
		tolerance = decimal.NewFromFloat(0.01)
	}
	return &Validator{resolver: resolver, repo: repo, tolerance: tolerance}
}

// Check walks every pair sharing the base currency and reports pairs whose
// implied cross rate deviates beyond the tolerance. Advisory only.
func (v *Validator) Check(ctx context.Context, base string, onDate time.Time) ([]Warning, error) {
	if v == nil || v.repo == nil || v.resolver == nil {
		return nil, fmt.Errorf("rates: validator not initialised")
	}
	pairs, err := v.repo.Pairs(ctx)
	if err != nil {
		return nil, err
	}
	fromBase := make(map[string]decimal.Decimal)
	for _, pair := range pairs {
		if pair[0] != base || pair[1] == base {
			continue
		}
		resolved, err := v.resolver.Resolve(ctx, base, pair[1], onDate, TypeClosing)
		if err != nil {
			continue
		}
		fromBase[pair[1]] = resolved.Value
	}

	var warnings []Warning
	for _, pair := range pairs {
		via, target := pair[0], pair[1]
		if via == base || target == base {
			continue
		}
		baseToVia, ok := fromBase[via]
		if !ok || baseToVia.IsZero() {
			continue
		}
		direct, ok := fromBase[target]
		if !ok || direct.IsZero() {
			continue
		}
		cross, err := v.resolver.Resolve(ctx, via, target, onDate, TypeClosing)
		if err != nil {
			continue
		}
		implied := baseToVia.Mul(cross.Value)
		deviation := implied.Sub(direct).Abs().Div(direct.Abs())
		if deviation.GreaterThan(v.tolerance) {
			warnings = append(warnings, Warning{
				Base:     base,
				Via:      via,
				Target:   target,
				Implied:  implied,
				Direct:   direct,
				Relative: deviation,
			})
		}
	}
	return warnings, nil
}
