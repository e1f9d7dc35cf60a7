package rules

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads derivation rules. Rules are maintained by administrators
// and read-only to the engine.
type Repository interface {
	// ListForPair returns the active rules configured for the ledger pair.
	ListForPair(ctx context.Context, sourceLedgerID, targetLedgerID int64) ([]Rule, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) ListForPair(ctx context.Context, sourceLedgerID, targetLedgerID int64) ([]Rule, error) {
	rows, err := r.db.Query(ctx, `SELECT id, source_ledger_id, target_ledger_id, account_id, account_group, rule_kind, target_account_id, factor, adjustment, rationale, active, priority, created_at
FROM derivation_rules
WHERE source_ledger_id=$1 AND target_ledger_id=$2 AND active
ORDER BY priority DESC, created_at DESC`, sourceLedgerID, targetLedgerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Rule
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(&rule.ID, &rule.SourceLedgerID, &rule.TargetLedgerID, &rule.AccountID, &rule.AccountGroup,
			&rule.Kind, &rule.TargetAccount, &rule.Factor, &rule.Adjustment, &rule.Rationale, &rule.Active,
			&rule.Priority, &rule.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}
