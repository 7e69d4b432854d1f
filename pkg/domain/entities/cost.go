package entities

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CostSource is the authority a unit cost was resolved from
type CostSource int

const (
	// CostSourceUnset marks movements that carry no resolved cost authority
	CostSourceUnset CostSource = iota
	CostSourceActual
	CostSourceStandard
	CostSourceEstimated
)

// String method for CostSource enum
func (s CostSource) String() string {
	switch s {
	case CostSourceActual:
		return "ACTUAL"
	case CostSourceStandard:
		return "STANDARD"
	case CostSourceEstimated:
		return "ESTIMATED"
	case CostSourceUnset:
		return ""
	default:
		return "UNKNOWN"
	}
}

// ParseCostSource parses the String form of a CostSource
func ParseCostSource(s string) (CostSource, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ACTUAL":
		return CostSourceActual, nil
	case "STANDARD":
		return CostSourceStandard, nil
	case "ESTIMATED":
		return CostSourceEstimated, nil
	case "":
		return CostSourceUnset, nil
	default:
		return CostSourceUnset, fmt.Errorf("unknown cost source %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (s CostSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *CostSource) UnmarshalText(text []byte) error {
	parsed, err := ParseCostSource(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// CostResult is a resolved unit cost with its provenance
type CostResult struct {
	UnitCost       decimal.Decimal
	Source         CostSource
	HasEstimate    bool
	EstimateReason string
}

// CombineCostSources applies the roll-up aggregation rule to a parent's children:
// any estimate makes the parent ESTIMATED, all ACTUAL makes it ACTUAL,
// anything else is STANDARD. An empty set is ACTUAL.
func CombineCostSources(children []CostResult) CostSource {
	allActual := true
	for _, c := range children {
		if c.HasEstimate {
			return CostSourceEstimated
		}
		switch c.Source {
		case CostSourceActual:
		case CostSourceStandard, CostSourceEstimated, CostSourceUnset:
			allActual = false
		}
	}
	if allActual {
		return CostSourceActual
	}
	return CostSourceStandard
}

// CostNode is one node of a rolled-up cost breakdown tree
type CostNode struct {
	ItemID            ItemID          `json:"item_id"`
	Level             int             `json:"level"`
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	QuantityPerParent decimal.Decimal `json:"quantity_per_parent"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	ExtendedCost      decimal.Decimal `json:"extended_cost"`
	CostSource        CostSource      `json:"cost_source"`
	HasEstimate       bool            `json:"has_estimate"`
	EstimateReason    string          `json:"estimate_reason,omitempty"`
	IsOverhead        bool            `json:"is_overhead,omitempty"`
	Children          []*CostNode     `json:"children"`
}

// Result returns the node's cost as a CostResult
func (n *CostNode) Result() CostResult {
	return CostResult{
		UnitCost:       n.UnitCost,
		Source:         n.CostSource,
		HasEstimate:    n.HasEstimate,
		EstimateReason: n.EstimateReason,
	}
}

// IsLeaf reports whether the node has no children
func (n *CostNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// Walk visits the node and its descendants depth-first
func (n *CostNode) Walk(fn func(node *CostNode)) {
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}
