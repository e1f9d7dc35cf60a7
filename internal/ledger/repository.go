package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrLedgerNotFound indicates an unknown ledger id or code.
	ErrLedgerNotFound = errors.New("ledger: not found")
	// ErrNoLeadingLedger indicates configuration without an active leading ledger.
	ErrNoLeadingLedger = errors.New("ledger: no active leading ledger configured")
)

// Repository exposes read access to ledger master data. The engine never
// mutates ledgers; administrative edits happen outside this module.
type Repository interface {
	List(ctx context.Context) ([]Ledger, error)
	Get(ctx context.Context, id int64) (Ledger, error)
	Leading(ctx context.Context) (Ledger, error)
	Targets(ctx context.Context) ([]Ledger, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const ledgerColumns = `id, code, description, is_leading, base_currency, principle, second_currency, third_currency, is_consolidation, active, created_at, updated_at`

func (r *repository) List(ctx context.Context) ([]Ledger, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ledgerColumns+` FROM ledgers ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLedgers(rows)
}

func (r *repository) Get(ctx context.Context, id int64) (Ledger, error) {
	row := r.db.QueryRow(ctx, `SELECT `+ledgerColumns+` FROM ledgers WHERE id=$1`, id)
	l, err := scanLedger(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ledger{}, ErrLedgerNotFound
		}
		return Ledger{}, err
	}
	return l, nil
}

func (r *repository) Leading(ctx context.Context) (Ledger, error) {
	row := r.db.QueryRow(ctx, `SELECT `+ledgerColumns+` FROM ledgers WHERE is_leading AND active LIMIT 1`)
	l, err := scanLedger(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ledger{}, ErrNoLeadingLedger
		}
		return Ledger{}, err
	}
	return l, nil
}

// Targets returns the active non-leading ledgers, the set every posted
// source document is replicated into.
func (r *repository) Targets(ctx context.Context) ([]Ledger, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ledgerColumns+` FROM ledgers WHERE NOT is_leading AND active ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLedgers(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedger(row rowScanner) (Ledger, error) {
	var l Ledger
	err := row.Scan(&l.ID, &l.Code, &l.Description, &l.IsLeading, &l.BaseCurrency, &l.Principle,
		&l.SecondCurrency, &l.ThirdCurrency, &l.IsConsolidation, &l.Active, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return Ledger{}, err
	}
	return l, nil
}

func scanLedgers(rows pgx.Rows) ([]Ledger, error) {
	var out []Ledger
	for rows.Next() {
		l, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
