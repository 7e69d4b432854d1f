package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/costing/pkg/application/services/costing"
	"github.com/vsinha/costing/pkg/application/services/inventory"
	"github.com/vsinha/costing/pkg/application/services/production"
	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
	"github.com/vsinha/costing/pkg/infrastructure/logging"
	"github.com/vsinha/costing/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/costing/pkg/interfaces/cli/output"
)

func main() {
	ctx := context.Background()
	logger := logging.New("warn", "text")

	// Create the store and services
	store := memory.NewStore(16)
	setupPaintShop(ctx, store)

	stock := inventory.NewInventoryService(store, logger)
	plant := production.NewProductionService(store, logger)
	engine := costing.NewCostingService(store, logger, costing.DefaultConfig())

	received := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	receipts := []inventory.ReceiveRequest{
		{ItemID: "RESIN", LotCode: "R-001", Quantity: decimal.NewFromInt(200), UnitCost: decimal.RequireFromString("8.00"), ReceivedAt: received},
		{ItemID: "SOLVENT", LotCode: "S-001", Quantity: decimal.NewFromInt(80), UnitCost: decimal.RequireFromString("2.50"), ReceivedAt: received},
	}
	var resinLot *entities.Lot
	for _, req := range receipts {
		lot, _, err := stock.ReceiveLot(ctx, req)
		if err != nil {
			fmt.Printf("❌ Receipt failed: %v\n", err)
			os.Exit(1)
		}
		if req.ItemID == "RESIN" {
			resinLot = lot
		}
	}

	fmt.Println("🏭 Mixing 100 kg of paint base from the assembly recipe...")
	result, err := plant.ProduceAssembly(ctx, production.ProduceRequest{
		ItemID:     "BASE",
		LotCode:    "B-001",
		Quantity:   decimal.NewFromInt(100),
		ProducedAt: received.AddDate(0, 0, 2),
	})
	if err != nil {
		fmt.Printf("❌ Production failed: %v\n", err)
		os.Exit(1)
	}
	output.Production(os.Stdout, output.FormatText, result)
	fmt.Println()

	fmt.Println("💸 Resin supplier issues a price correction...")
	revaluation, err := engine.RevalueLot(ctx, resinLot.ID, decimal.RequireFromString("8.60"), "price correction", "purchasing", true)
	if err != nil {
		fmt.Printf("❌ Revaluation failed: %v\n", err)
		os.Exit(1)
	}
	output.Revaluation(os.Stdout, output.FormatText, revaluation)
	fmt.Println()

	cogs, err := engine.InspectCogs(ctx, "PAINT", nil, true)
	if err != nil {
		fmt.Printf("❌ COGS inspection failed: %v\n", err)
		os.Exit(1)
	}
	output.Cogs(os.Stdout, output.FormatText, cogs)
}

// setupPaintShop creates a two-level paint recipe with a metered energy overhead
func setupPaintShop(ctx context.Context, store *memory.Store) {
	energyRate := decimal.RequireFromString("0.40")
	pigmentStandard := decimal.RequireFromString("6.00")
	items := []*entities.Item{
		{ID: "PAINT", SKU: "PNT-1", Name: "House paint", Sellable: true, Assemblable: true, Tracked: true},
		{ID: "BASE", SKU: "BAS-1", Name: "Paint base", Assemblable: true, Tracked: true},
		{ID: "PIGMENT", SKU: "PIG-1", Name: "Titanium white", Purchasable: true, Tracked: true, StandardCost: &pigmentStandard},
		{ID: "RESIN", SKU: "RES-1", Name: "Alkyd resin", Purchasable: true, Tracked: true},
		{ID: "SOLVENT", SKU: "SOL-1", Name: "Mineral spirits", Purchasable: true, Tracked: true},
		{ID: "ENERGY", SKU: "NRG-1", Name: "Mixer energy (kWh)", StandardCost: &energyRate},
	}

	edge := func(parent, child entities.ItemID, ratio, loss string, overhead bool) *entities.AssemblyEdge {
		e, err := entities.NewAssemblyEdge(parent, child, decimal.RequireFromString(ratio), decimal.RequireFromString(loss), decimal.Zero, entities.EffectiveWindow{})
		if err != nil {
			panic(err)
		}
		e.IsEnergyOrOverhead = overhead
		return e
	}
	edges := []*entities.AssemblyEdge{
		edge("PAINT", "BASE", "0.7", "0.02", false),
		edge("PAINT", "PIGMENT", "0.3", "0.02", false),
		edge("PAINT", "ENERGY", "0.5", "0", true),
		edge("BASE", "RESIN", "0.8", "0", false),
		edge("BASE", "SOLVENT", "0.2", "0", false),
	}

	err := store.WithinTransaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		for _, item := range items {
			if err := repos.Items.SaveItem(ctx, item); err != nil {
				return err
			}
		}
		return repos.Assemblies.SaveEdges(ctx, edges)
	})
	if err != nil {
		panic(err)
	}
}
