package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/costing/pkg/domain/entities"
)

// CostQueryResult is the answer to a single-item cost query
type CostQueryResult struct {
	ItemID         entities.ItemID     `json:"item_id"`
	SKU            string              `json:"sku"`
	Name           string              `json:"name"`
	UnitCost       decimal.Decimal     `json:"unit_cost"`
	CostSource     entities.CostSource `json:"cost_source"`
	HasEstimate    bool                `json:"has_estimate"`
	EstimateReason string              `json:"estimate_reason,omitempty"`
	AsOf           *time.Time          `json:"as_of,omitempty"`
}

// CogsResult is a rolled-up cost with its full breakdown tree
type CogsResult struct {
	ItemID         entities.ItemID     `json:"item_id"`
	SKU            string              `json:"sku"`
	Name           string              `json:"name"`
	UnitCost       decimal.Decimal     `json:"unit_cost"`
	CostSource     entities.CostSource `json:"cost_source"`
	HasEstimate    bool                `json:"has_estimate"`
	EstimateReason string              `json:"estimate_reason,omitempty"`
	// MaterialCost and OverheadCost split the root's direct children
	MaterialCost decimal.Decimal    `json:"material_cost"`
	OverheadCost decimal.Decimal    `json:"overhead_cost"`
	AsOf         *time.Time         `json:"as_of,omitempty"`
	Breakdown    *entities.CostNode `json:"breakdown"`
}

// RevaluationResult is the triggering record plus every record propagated from it
type RevaluationResult struct {
	Record     *entities.RevaluationRecord  `json:"record"`
	Propagated []entities.RevaluationRecord `json:"propagated"`
}

// ReconciliationMismatch reports a lot whose ledger does not sum to its quantity
type ReconciliationMismatch struct {
	LotID          entities.LotID  `json:"lot_id"`
	LotCode        string          `json:"lot_code"`
	LotQuantity    decimal.Decimal `json:"lot_quantity"`
	LedgerQuantity decimal.Decimal `json:"ledger_quantity"`
}
