package classify

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUnclassifiedAccount indicates an account with no stored classification.
// Unclassified accounts fail the line deterministically; there is no silent
// default.
var ErrUnclassifiedAccount = errors.New("classify: account has no monetary classification")

// Repository provides read access to the classification master.
type Repository interface {
	Get(ctx context.Context, accountID int64) (Classification, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, accountID int64) (Classification, error) {
	var c Classification
	err := r.db.QueryRow(ctx, `SELECT account_id, account_group, monetary_class, method_override, created_at, updated_at
FROM account_classifications WHERE account_id=$1`, accountID).
		Scan(&c.AccountID, &c.AccountGroup, &c.Class, &c.MethodOverride, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Classification{}, fmt.Errorf("%w: account %d", ErrUnclassifiedAccount, accountID)
		}
		return Classification{}, err
	}
	return c, nil
}

// Classifier resolves the monetary class and effective translation method
// for a GL account. Pure lookup against master data.
type Classifier struct {
	repo Repository
}

func NewClassifier(repo Repository) *Classifier {
	return &Classifier{repo: repo}
}

// Classify returns the stored classification for the account.
func (c *Classifier) Classify(ctx context.Context, accountID int64) (Classification, error) {
	if c == nil || c.repo == nil {
		return Classification{}, fmt.Errorf("classify: classifier not initialised")
	}
	if accountID <= 0 {
		return Classification{}, fmt.Errorf("classify: account id required")
	}
	return c.repo.Get(ctx, accountID)
}
