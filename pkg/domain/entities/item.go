package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ItemID is the stable identifier of a product or material
type ItemID string

// Item is a product/material identity with its cost authorities
type Item struct {
	ID          ItemID
	SKU         string
	Name        string
	Purchasable bool
	Sellable    bool
	Assemblable bool
	Tracked     bool

	// StandardCost is the fixed reference cost, nil when unset
	StandardCost *decimal.Decimal
	// EstimatedCost is a provisional fallback, nil when unset
	EstimatedCost  *decimal.Decimal
	EstimateReason string
}

// NewItem creates a validated Item
func NewItem(id ItemID, sku, name string) (*Item, error) {
	if string(id) == "" {
		return nil, fmt.Errorf("item id cannot be empty")
	}
	if sku == "" {
		return nil, fmt.Errorf("sku cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("name cannot be empty")
	}

	return &Item{
		ID:   id,
		SKU:  sku,
		Name: name,
	}, nil
}

// Validate checks the cost authorities of an item
func (i *Item) Validate() error {
	if string(i.ID) == "" {
		return fmt.Errorf("item id cannot be empty")
	}
	if i.SKU == "" {
		return fmt.Errorf("sku cannot be empty")
	}
	if i.StandardCost != nil && i.StandardCost.IsNegative() {
		return fmt.Errorf("standard cost cannot be negative, got %s", i.StandardCost)
	}
	if i.EstimatedCost != nil && i.EstimatedCost.IsNegative() {
		return fmt.Errorf("estimated cost cannot be negative, got %s", i.EstimatedCost)
	}
	return nil
}

// CanHaveChildren reports whether the item may be a parent in the assembly graph.
// Items that are not assemblable are always leaves.
func (i *Item) CanHaveChildren() bool {
	return i.Assemblable
}
