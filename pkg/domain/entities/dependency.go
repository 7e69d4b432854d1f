package entities

import "time"

// DependencyID identifies an assembly cost dependency row
type DependencyID string

// AssemblyCostDependency records that a consumed lot's issue contributed to a
// produced lot's production. Immutable provenance.
type AssemblyCostDependency struct {
	ID                    DependencyID
	ConsumedLotID         LotID
	ProducedLotID         LotID
	ConsumedTransactionID TransactionID
	ProducedTransactionID TransactionID
	CreatedAt             time.Time
}
