package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// RevaluationID identifies a revaluation record
type RevaluationID string

// RevaluationRecord is the append-only audit entry for one lot affected by a revaluation
type RevaluationRecord struct {
	ID                     RevaluationID
	ItemID                 ItemID
	LotID                  LotID
	OldUnitCost            decimal.Decimal
	NewUnitCost            decimal.Decimal
	DeltaExtendedCost      decimal.Decimal
	Reason                 string
	Actor                  string
	CreatedAt              time.Time
	PropagatedToAssemblies bool
	// ParentID links a propagated record to the record that triggered it
	ParentID RevaluationID
}
