package events

import (
	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/services"
)

const (
	LotReceivedEvent         = "lot.received"
	LotAdjustedEvent         = "lot.adjusted"
	LotDeactivatedEvent      = "lot.deactivated"
	StockIssuedEvent         = "stock.issued"
	TransactionReversedEvent = "transaction.reversed"
	LotProducedEvent         = "lot.produced"
	LotRevaluedEvent         = "lot.revalued"
	CostPropagatedEvent      = "cost.propagated"
)

// AllEventTypes lists every event type the costing services publish
var AllEventTypes = []string{
	LotReceivedEvent,
	LotAdjustedEvent,
	LotDeactivatedEvent,
	StockIssuedEvent,
	TransactionReversedEvent,
	LotProducedEvent,
	LotRevaluedEvent,
	CostPropagatedEvent,
}

// LotStream is the stream id of events about one lot
func LotStream(id entities.LotID) string {
	return "lot-" + string(id)
}

// ItemStream is the stream id of events about one item
func ItemStream(id entities.ItemID) string {
	return "item-" + string(id)
}

type LotReceived struct {
	Lot         entities.Lot               `json:"lot"`
	Transaction entities.LedgerTransaction `json:"transaction"`
}

type LotAdjusted struct {
	Lot         entities.Lot               `json:"lot"`
	Transaction entities.LedgerTransaction `json:"transaction"`
}

type LotDeactivated struct {
	Lot entities.Lot `json:"lot"`
}

type StockIssued struct {
	ItemID       entities.ItemID              `json:"item_id"`
	Reference    string                       `json:"reference"`
	Issues       []services.LotIssue          `json:"issues"`
	Transactions []entities.LedgerTransaction `json:"transactions"`
	Override     bool                         `json:"override"`
}

type TransactionReversed struct {
	Original entities.LedgerTransaction `json:"original"`
	Reversal entities.LedgerTransaction `json:"reversal"`
}

type LotProduced struct {
	Lot          entities.Lot                      `json:"lot"`
	Transaction  entities.LedgerTransaction        `json:"transaction"`
	Dependencies []entities.AssemblyCostDependency `json:"dependencies"`
}

type LotRevalued struct {
	Record entities.RevaluationRecord `json:"record"`
}

type CostPropagated struct {
	Record entities.RevaluationRecord `json:"record"`
}
