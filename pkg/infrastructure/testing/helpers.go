package testing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
	"github.com/vsinha/costing/pkg/infrastructure/repositories/memory"
)

// Epoch is the first receipt date used by the scenarios
var Epoch = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

// Dec parses a decimal literal, panicking on malformed input
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DecPtr parses a decimal literal into a pointer
func DecPtr(s string) *decimal.Decimal {
	return entities.DecimalPtr(Dec(s))
}

// Day returns Epoch shifted by n days
func Day(n int) time.Time {
	return Epoch.AddDate(0, 0, n)
}

// MustItem creates an item whose SKU and name derive from id - panics on validation error
func MustItem(id string, assemblable bool) *entities.Item {
	item, err := entities.NewItem(entities.ItemID(id), id, id)
	if err != nil {
		panic(err)
	}
	item.Assemblable = assemblable
	item.Purchasable = !assemblable
	item.Tracked = true
	return item
}

// MustEdge creates an always-effective edge - panics on validation error
func MustEdge(parent, child, ratio, loss string) *entities.AssemblyEdge {
	edge, err := entities.NewAssemblyEdge(entities.ItemID(parent), entities.ItemID(child), Dec(ratio), Dec(loss), decimal.Zero, entities.EffectiveWindow{})
	if err != nil {
		panic(err)
	}
	return edge
}

// Seeder writes fixtures through a set of repositories - panics on any error
type Seeder struct {
	Ctx   context.Context
	Repos repositories.Repositories
}

// NewSeeder creates a fresh in-memory store and a seeder bound to it
func NewSeeder() (*memory.Store, *Seeder) {
	store := memory.NewStore(16)
	return store, &Seeder{Ctx: context.Background(), Repos: store.Repositories()}
}

// Items saves items
func (s *Seeder) Items(items ...*entities.Item) {
	for _, item := range items {
		if err := s.Repos.Items.SaveItem(s.Ctx, item); err != nil {
			panic(err)
		}
	}
}

// Edges saves edges
func (s *Seeder) Edges(edges ...*entities.AssemblyEdge) {
	if err := s.Repos.Assemblies.SaveEdges(s.Ctx, edges); err != nil {
		panic(err)
	}
}

// Lot receives a lot and its RECEIPT transaction, keeping the ledger reconciled
func (s *Seeder) Lot(itemID, code, quantity, unitCost string, receivedAt time.Time) *entities.Lot {
	lot, err := entities.NewLot(entities.LotID(itemID+"-"+code), entities.ItemID(itemID), code, Dec(quantity), Dec(unitCost), receivedAt)
	if err != nil {
		panic(err)
	}
	if err := s.Repos.Lots.CreateLot(s.Ctx, lot); err != nil {
		panic(err)
	}
	tx, err := entities.NewLedgerTransaction(entities.TransactionID(string(lot.ID)+"-RCPT"), lot.ID, entities.TransactionReceipt,
		lot.Quantity, *lot.CurrentUnitCost, entities.CostSourceActual, "seed", receivedAt)
	if err != nil {
		panic(err)
	}
	if err := s.Repos.Ledger.AppendTransaction(s.Ctx, tx); err != nil {
		panic(err)
	}
	return lot
}

// BuildPaintScenario seeds a two-level paint formulation:
//
//	PAINT  <- BASE (0.7, 2% loss) <- RESIN (1.0) + SOLVENT (0.25)
//	       <- PIGMENT (0.3, 2% loss)
//	       <- ENERGY (0.5, overhead)
//
// RESIN has lots, PIGMENT only a standard cost, SOLVENT only an estimate and
// ENERGY a standard cost.
func BuildPaintScenario() (*memory.Store, *Seeder) {
	store, seed := NewSeeder()

	paint := MustItem("PAINT", true)
	paint.Sellable = true
	base := MustItem("BASE", true)
	resin := MustItem("RESIN", false)
	pigment := MustItem("PIGMENT", false)
	pigment.StandardCost = DecPtr("10.00")
	solvent := MustItem("SOLVENT", false)
	solvent.EstimatedCost = DecPtr("2.00")
	solvent.EstimateReason = "awaiting supplier quote"
	energy := MustItem("ENERGY", false)
	energy.Tracked = false
	energy.StandardCost = DecPtr("0.40")

	seed.Items(paint, base, resin, pigment, solvent, energy)

	overhead := MustEdge("PAINT", "ENERGY", "0.5", "0")
	overhead.IsEnergyOrOverhead = true
	seed.Edges(
		MustEdge("PAINT", "BASE", "0.7", "0.02"),
		MustEdge("PAINT", "PIGMENT", "0.3", "0.02"),
		overhead,
		MustEdge("BASE", "RESIN", "1.0", "0"),
		MustEdge("BASE", "SOLVENT", "0.25", "0"),
	)

	seed.Lot("RESIN", "R-001", "100", "8.00", Day(0))
	seed.Lot("RESIN", "R-002", "50", "9.00", Day(10))

	return store, seed
}
