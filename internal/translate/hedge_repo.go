package translate

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HedgeRepository reads designated net-investment hedge relationships from
// the hedge-accounting tables.
type HedgeRepository struct {
	db *pgxpool.Pool
}

func NewHedgeRepository(db *pgxpool.Pool) *HedgeRepository {
	return &HedgeRepository{db: db}
}

// ActiveRelationship returns the newest active hedge covering the account.
func (r *HedgeRepository) ActiveRelationship(ctx context.Context, companyID, accountID int64) (HedgeRelationship, bool, error) {
	if r == nil || r.db == nil {
		return HedgeRelationship{}, false, nil
	}
	row := r.db.QueryRow(ctx, `SELECT id, oci_account_id, effectiveness
FROM hedge_relationships
WHERE company_id=$1 AND hedged_account_id=$2 AND active
ORDER BY designated_at DESC
LIMIT 1`, companyID, accountID)
	var rel HedgeRelationship
	if err := row.Scan(&rel.ID, &rel.OCIAccountID, &rel.Effectiveness); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return HedgeRelationship{}, false, nil
		}
		return HedgeRelationship{}, false, err
	}
	rel.Active = true
	return rel, true, nil
}
