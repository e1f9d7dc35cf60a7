package rates

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides read access to the exchange_rates table.
type Repository interface {
	// ListEligible returns rates for the pair with effective date on or
	// before onDate, newest first.
	ListEligible(ctx context.Context, from, to string, onDate time.Time) ([]Rate, error)
	// Pairs lists the distinct currency pairs that have at least one rate,
	// used by the advisory consistency check.
	Pairs(ctx context.Context) ([][2]string, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) ListEligible(ctx context.Context, from, to string, onDate time.Time) ([]Rate, error) {
	rows, err := r.db.Query(ctx, `SELECT id, from_currency, to_currency, effective_date, rate_type, rate, source, official, created_at
FROM exchange_rates
WHERE from_currency=$1 AND to_currency=$2 AND effective_date <= $3
ORDER BY effective_date DESC, created_at DESC`, from, to, onDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Rate
	for rows.Next() {
		var rate Rate
		if err := rows.Scan(&rate.ID, &rate.FromCurrency, &rate.ToCurrency, &rate.EffectiveDate, &rate.Type,
			&rate.Value, &rate.Source, &rate.Official, &rate.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rate)
	}
	return out, rows.Err()
}

func (r *repository) Pairs(ctx context.Context) ([][2]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT from_currency, to_currency FROM exchange_rates ORDER BY from_currency, to_currency`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out [][2]string
	for rows.Next() {
		var pair [2]string
		if err := rows.Scan(&pair[0], &pair[1]); err != nil {
			return nil, err
		}
		out = append(out, pair)
	}
	return out, rows.Err()
}
