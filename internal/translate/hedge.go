package translate

import (
	"context"

	"github.com/shopspring/decimal"
)

// HedgeRelationship is the slice of the hedge-accounting subsystem the
// calculator consumes: whether a net-investment hedge covers the hedged
// item and where its OCI bucket lives.
type HedgeRelationship struct {
	ID            string
	OCIAccountID  int64
	Effectiveness decimal.Decimal
	Active        bool
}

// HedgeLookup is implemented by the external hedge-accounting collaborator.
// The engine never computes hedge designation itself.
type HedgeLookup interface {
	// ActiveRelationship returns the active hedge for the hedged item, or
	// ok=false when none exists.
	ActiveRelationship(ctx context.Context, companyID, accountID int64) (HedgeRelationship, bool, error)
}

// NoHedges is the default lookup used when no hedge subsystem is wired.
type NoHedges struct{}

func (NoHedges) ActiveRelationship(context.Context, int64, int64) (HedgeRelationship, bool, error) {
	return HedgeRelationship{}, false, nil
}
