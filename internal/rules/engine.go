package rules

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrNoApplicableRule should not occur given the COPY default; it is
// reachable only when configuration data is internally inconsistent, e.g. a
// RECLASSIFY rule without a target account.
var ErrNoApplicableRule = errors.New("rules: no applicable rule")

// Engine resolves the single effective derivation rule for a
// (source ledger, target ledger, account) triple.
type Engine struct {
	repo Repository
}

func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo}
}

// Resolve returns exactly one effective rule. Resolution order: exact
// account match, then account-group match, then the built-in COPY default.
// Ties within one specificity break by highest priority, then most recent
// creation. The result is deterministic for fixed reference data, so
// idempotent reruns yield identical derivations.
func (e *Engine) Resolve(ctx context.Context, sourceLedgerID, targetLedgerID, accountID int64, accountGroup string) (Matched, error) {
	if e == nil || e.repo == nil {
		return Matched{}, fmt.Errorf("rules: engine not initialised")
	}
	configured, err := e.repo.ListForPair(ctx, sourceLedgerID, targetLedgerID)
	if err != nil {
		return Matched{}, err
	}

	var accountMatches, groupMatches []Rule
	for _, rule := range configured {
		if !rule.Active {
			continue
		}
		switch {
		case rule.AccountID != nil:
			if *rule.AccountID == accountID {
				accountMatches = append(accountMatches, rule)
			}
		case rule.AccountGroup != nil:
			if accountGroup != "" && *rule.AccountGroup == accountGroup {
				groupMatches = append(groupMatches, rule)
			}
		}
	}

	if len(accountMatches) > 0 {
		m := Matched{Rule: best(accountMatches), Specificity: SpecificityAccount}
		return m, validate(m)
	}
	if len(groupMatches) > 0 {
		m := Matched{Rule: best(groupMatches), Specificity: SpecificityGroup}
		return m, validate(m)
	}
	return DefaultCopy(sourceLedgerID, targetLedgerID), nil
}

func best(matches []Rule) Rule {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Priority != matches[j].Priority {
			return matches[i].Priority > matches[j].Priority
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches[0]
}

func validate(m Matched) error {
	rule := m.Rule
	switch rule.Kind {
	case KindCopy, KindExclude:
		return nil
	case KindTranslate:
		if rule.Factor.IsZero() {
			return fmt.Errorf("%w: rule %d kind %s has zero factor", ErrNoApplicableRule, rule.ID, rule.Kind)
		}
		return nil
	case KindAdjust:
		// The factor is optional for adjustments; a fixed amount alone is valid.
		if rule.Factor.IsZero() && rule.Adjustment.IsZero() {
			return fmt.Errorf("%w: rule %d adjusts with neither factor nor amount", ErrNoApplicableRule, rule.ID)
		}
		return nil
	case KindReclassify:
		if rule.TargetAccount == nil || *rule.TargetAccount <= 0 {
			return fmt.Errorf("%w: rule %d reclassifies without target account", ErrNoApplicableRule, rule.ID)
		}
		return nil
	default:
		return fmt.Errorf("%w: rule %d has unknown kind %q", ErrNoApplicableRule, rule.ID, rule.Kind)
	}
}
