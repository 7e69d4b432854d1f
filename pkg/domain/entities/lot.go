package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LotID identifies a lot
type LotID string

// Lot is a discrete, dated receipt of stock for one item
type Lot struct {
	ID     LotID
	ItemID ItemID
	Code   string
	// Quantity is signed and expressed in the kg-equivalent canonical unit
	Quantity decimal.Decimal

	// UnitCost is the legacy snapshot cost
	UnitCost *decimal.Decimal
	// OriginalUnitCost is written once and never changes afterwards
	OriginalUnitCost *decimal.Decimal
	// CurrentUnitCost is the valuation authority once set
	CurrentUnitCost *decimal.Decimal

	ReceivedAt time.Time
	Active     bool
	// Version is bumped on every persisted update (optimistic concurrency)
	Version int
}

// NewLot creates a validated, active lot whose three cost fields start at unitCost
func NewLot(id LotID, itemID ItemID, code string, quantity, unitCost decimal.Decimal, receivedAt time.Time) (*Lot, error) {
	if string(id) == "" {
		return nil, fmt.Errorf("lot id cannot be empty")
	}
	if string(itemID) == "" {
		return nil, fmt.Errorf("item id cannot be empty")
	}
	if code == "" {
		return nil, fmt.Errorf("lot code cannot be empty")
	}
	if unitCost.IsNegative() {
		return nil, fmt.Errorf("unit cost cannot be negative, got %s", unitCost)
	}

	cost := RoundMoney(unitCost)
	return &Lot{
		ID:               id,
		ItemID:           itemID,
		Code:             code,
		Quantity:         RoundQuantity(quantity),
		UnitCost:         DecimalPtr(cost),
		OriginalUnitCost: DecimalPtr(cost),
		CurrentUnitCost:  DecimalPtr(cost),
		ReceivedAt:       receivedAt,
		Active:           true,
	}, nil
}

// AuthoritativeCost returns the most authoritative set cost: current, then
// original, then the legacy snapshot. A set zero is a write-down and counts.
func (l *Lot) AuthoritativeCost() (decimal.Decimal, bool) {
	for _, c := range []*decimal.Decimal{l.CurrentUnitCost, l.OriginalUnitCost, l.UnitCost} {
		if c != nil {
			return *c, true
		}
	}
	return decimal.Zero, false
}

// EffectiveCost is AuthoritativeCost, or zero when the lot carries no cost
func (l *Lot) EffectiveCost() decimal.Decimal {
	cost, _ := l.AuthoritativeCost()
	return cost
}

// ReceivedOnOrBefore reports whether the lot is eligible for an as-of query
func (l *Lot) ReceivedOnOrBefore(asOf time.Time) bool {
	return !l.ReceivedAt.After(asOf)
}

// Clone returns a deep copy of the lot
func (l *Lot) Clone() *Lot {
	c := *l
	c.UnitCost = clonePtr(l.UnitCost)
	c.OriginalUnitCost = clonePtr(l.OriginalUnitCost)
	c.CurrentUnitCost = clonePtr(l.CurrentUnitCost)
	return &c
}

func clonePtr(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
