package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionID identifies a ledger transaction
type TransactionID string

// TransactionType classifies a ledger movement
type TransactionType string

const (
	TransactionReceipt    TransactionType = "RECEIPT"
	TransactionIssue      TransactionType = "ISSUE"
	TransactionAdjustment TransactionType = "ADJUSTMENT"
	TransactionProduce    TransactionType = "PRODUCE"
	TransactionStocktake  TransactionType = "STOCKTAKE"

	reversalSuffix = "_REVERSAL"
)

// IsReversal reports whether the type reverses another transaction
func (t TransactionType) IsReversal() bool {
	return strings.HasSuffix(string(t), reversalSuffix)
}

// Reversal returns the reversal type for t
func (t TransactionType) Reversal() TransactionType {
	return TransactionType(string(t) + reversalSuffix)
}

// IsValid checks that t is a base type or the reversal of one
func (t TransactionType) IsValid() bool {
	base := TransactionType(strings.TrimSuffix(string(t), reversalSuffix))
	switch base {
	case TransactionReceipt, TransactionIssue, TransactionAdjustment, TransactionProduce, TransactionStocktake:
		return true
	default:
		return false
	}
}

// LedgerTransaction is one signed, immutable movement against a lot
type LedgerTransaction struct {
	ID           TransactionID
	LotID        LotID
	Type         TransactionType
	Quantity     decimal.Decimal
	UnitCost     decimal.Decimal
	ExtendedCost decimal.Decimal
	CostSource   CostSource
	Reference    string
	// ReversesID links a reversal to the transaction it undoes
	ReversesID TransactionID
	CreatedAt  time.Time
}

// NewLedgerTransaction creates a normalized transaction whose extended cost
// carries the sign of the quantity
func NewLedgerTransaction(
	id TransactionID,
	lotID LotID,
	txType TransactionType,
	quantity decimal.Decimal,
	unitCost decimal.Decimal,
	source CostSource,
	reference string,
	createdAt time.Time,
) (*LedgerTransaction, error) {
	if string(id) == "" {
		return nil, fmt.Errorf("transaction id cannot be empty")
	}
	if string(lotID) == "" {
		return nil, fmt.Errorf("lot id cannot be empty")
	}
	if !txType.IsValid() {
		return nil, fmt.Errorf("unknown transaction type %q", txType)
	}
	if unitCost.IsNegative() {
		return nil, fmt.Errorf("unit cost cannot be negative, got %s", unitCost)
	}

	qty := RoundQuantity(quantity)
	cost := RoundMoney(unitCost)
	return &LedgerTransaction{
		ID:           id,
		LotID:        lotID,
		Type:         txType,
		Quantity:     qty,
		UnitCost:     cost,
		ExtendedCost: RoundMoney(qty.Mul(cost)),
		CostSource:   source,
		Reference:    reference,
		CreatedAt:    createdAt,
	}, nil
}

// IssuedQuantity is the absolute quantity moved by the transaction
func (t *LedgerTransaction) IssuedQuantity() decimal.Decimal {
	return t.Quantity.Abs()
}
