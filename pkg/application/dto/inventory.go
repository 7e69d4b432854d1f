package dto

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/services"
)

// IssueResult is the outcome of a FIFO stock issue
type IssueResult struct {
	ItemID       entities.ItemID               `json:"item_id"`
	Issues       []services.LotIssue           `json:"issues"`
	Transactions []*entities.LedgerTransaction `json:"transactions"`
	Quantity     decimal.Decimal               `json:"quantity"`
	TotalCost    decimal.Decimal               `json:"total_cost"`
	Override     bool                          `json:"override"`
}

// ProductionResult is the outcome of producing a lot from consumed inputs
type ProductionResult struct {
	Lot          *entities.Lot                      `json:"lot"`
	Transaction  *entities.LedgerTransaction        `json:"transaction"`
	Consumed     []*IssueResult                     `json:"consumed"`
	Dependencies []*entities.AssemblyCostDependency `json:"dependencies"`
	TotalCost    decimal.Decimal                    `json:"total_cost"`
}
