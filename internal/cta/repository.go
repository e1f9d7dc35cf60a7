package cta

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/ledgerbridge/internal/platform/db"
)

// Repository aggregates CTA components from persisted target lines and
// stores recomputed rollups.
type Repository interface {
	// MovementsThrough returns per (company, ledger, period) CTA sums for
	// every period up to and including the given one.
	MovementsThrough(ctx context.Context, fiscalPeriod string) ([]Movement, error)
	// ReplaceRollups swaps the stored rollups for the period in one
	// transaction; recomputation is idempotent.
	ReplaceRollups(ctx context.Context, fiscalPeriod string, rollups []Rollup) error
	// RollupsForPeriod reads the stored rollups for one period.
	RollupsForPeriod(ctx context.Context, fiscalPeriod string) ([]Rollup, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) MovementsThrough(ctx context.Context, fiscalPeriod string) ([]Movement, error) {
	rows, err := r.db.Query(ctx, `SELECT t.company_id, t.ledger_id, to_char(t.posting_date, 'YYYY-MM') AS period, COALESCE(sum(l.cta_component), 0)
FROM target_documents t
JOIN target_lines l ON l.target_doc_id = t.id
WHERE to_char(t.posting_date, 'YYYY-MM') <= $1
GROUP BY t.company_id, t.ledger_id, period
ORDER BY t.company_id, t.ledger_id, period`, fiscalPeriod)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.CompanyID, &m.LedgerID, &m.FiscalPeriod, &m.Amount); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) ReplaceRollups(ctx context.Context, fiscalPeriod string, rollups []Rollup) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM cta_rollups WHERE fiscal_period=$1`, fiscalPeriod); err != nil {
			return err
		}
		for _, rollup := range rollups {
			if _, err := tx.Exec(ctx, `INSERT INTO cta_rollups (company_id, ledger_id, principle, fiscal_period, opening, movement, closing, computed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				rollup.CompanyID, rollup.LedgerID, rollup.Principle, rollup.FiscalPeriod,
				rollup.Opening, rollup.Movement, rollup.Closing, rollup.ComputedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repository) RollupsForPeriod(ctx context.Context, fiscalPeriod string) ([]Rollup, error) {
	rows, err := r.db.Query(ctx, `SELECT company_id, ledger_id, principle, fiscal_period, opening, movement, closing, computed_at
FROM cta_rollups WHERE fiscal_period=$1 ORDER BY company_id, ledger_id`, fiscalPeriod)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Rollup
	for rows.Next() {
		var rollup Rollup
		if err := rows.Scan(&rollup.CompanyID, &rollup.LedgerID, &rollup.Principle, &rollup.FiscalPeriod,
			&rollup.Opening, &rollup.Movement, &rollup.Closing, &rollup.ComputedAt); err != nil {
			return nil, err
		}
		out = append(out, rollup)
	}
	return out, rows.Err()
}
