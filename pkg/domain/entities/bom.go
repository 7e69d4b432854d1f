package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EffectiveWindow bounds when an assembly edge applies. Nil ends are open.
type EffectiveWindow struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether t falls inside the window, inclusive on both ends
func (w EffectiveWindow) Contains(t time.Time) bool {
	if w.From != nil && t.Before(*w.From) {
		return false
	}
	if w.To != nil && t.After(*w.To) {
		return false
	}
	return true
}

// AssemblyEdge is a directed parent-consumes-child relationship in the BOM graph
type AssemblyEdge struct {
	ParentID ItemID
	ChildID  ItemID
	// Ratio is child units consumed per parent unit before loss
	Ratio decimal.Decimal
	// LossFactor is fractional waste, 0.02 = 2%
	LossFactor decimal.Decimal
	// YieldFactor is fractional output efficiency; zero means unset and is treated as 1
	YieldFactor        decimal.Decimal
	Effectivity        EffectiveWindow
	IsEnergyOrOverhead bool
	Active             bool
}

// NewAssemblyEdge creates a validated, active AssemblyEdge
func NewAssemblyEdge(parentID, childID ItemID, ratio, lossFactor, yieldFactor decimal.Decimal, effectivity EffectiveWindow) (*AssemblyEdge, error) {
	if string(parentID) == "" {
		return nil, fmt.Errorf("parent item id cannot be empty")
	}
	if string(childID) == "" {
		return nil, fmt.Errorf("child item id cannot be empty")
	}
	if parentID == childID {
		return nil, fmt.Errorf("parent and child cannot be the same: %s", parentID)
	}
	if !ratio.IsPositive() {
		return nil, fmt.Errorf("ratio must be positive, got %s", ratio)
	}
	if lossFactor.IsNegative() {
		return nil, fmt.Errorf("loss factor cannot be negative, got %s", lossFactor)
	}
	if yieldFactor.IsNegative() {
		return nil, fmt.Errorf("yield factor cannot be negative, got %s", yieldFactor)
	}
	if effectivity.From != nil && effectivity.To != nil && effectivity.To.Before(*effectivity.From) {
		return nil, fmt.Errorf("effective window ends before it starts")
	}

	return &AssemblyEdge{
		ParentID:    parentID,
		ChildID:     childID,
		Ratio:       ratio,
		LossFactor:  lossFactor,
		YieldFactor: yieldFactor,
		Effectivity: effectivity,
		Active:      true,
	}, nil
}

// QuantityNeeded is ratio × (1 + loss) / yield, unrounded
func (e *AssemblyEdge) QuantityNeeded() decimal.Decimal {
	yield := e.YieldFactor
	if !yield.IsPositive() {
		yield = decimal.NewFromInt(1)
	}
	return e.Ratio.Mul(decimal.NewFromInt(1).Add(e.LossFactor)).Div(yield)
}

// EffectiveAt reports whether the edge is active and its window contains t.
// A nil t means no date filter.
func (e *AssemblyEdge) EffectiveAt(t *time.Time) bool {
	if !e.Active {
		return false
	}
	if t == nil {
		return true
	}
	return e.Effectivity.Contains(*t)
}
