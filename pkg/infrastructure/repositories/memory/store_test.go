package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func mustLot(t *testing.T, id, code string, qty, cost int64, received time.Time) *entities.Lot {
	t.Helper()
	lot, err := entities.NewLot(entities.LotID(id), "BOLT", code, decimal.NewFromInt(qty), decimal.NewFromInt(cost), received)
	if err != nil {
		t.Fatalf("Failed to create lot: %v", err)
	}
	return lot
}

func TestItemRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repos := NewStore(4).Repositories()

	item, err := entities.NewItem("I1", "BOLT", "Hex bolt")
	if err != nil {
		t.Fatalf("Failed to create item: %v", err)
	}
	item.StandardCost = entities.DecimalPtr(decimal.RequireFromString("0.25"))

	if err := repos.Items.SaveItem(ctx, item); err != nil {
		t.Fatalf("Failed to save item: %v", err)
	}

	bySKU, err := repos.Items.GetItemBySKU(ctx, "BOLT")
	if err != nil {
		t.Fatalf("Failed to get item by sku: %v", err)
	}
	if bySKU.ID != "I1" {
		t.Errorf("Expected item I1, got %s", bySKU.ID)
	}

	// returned items are copies
	bySKU.Name = "changed"
	again, _ := repos.Items.GetItem(ctx, "I1")
	if again.Name != "Hex bolt" {
		t.Errorf("Expected stored name to be unchanged, got %s", again.Name)
	}

	_, err = repos.Items.GetItem(ctx, "MISSING")
	if !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLotRepository_ListLotsByItemFilters(t *testing.T) {
	ctx := context.Background()
	repos := NewStore(1).Repositories()

	late := mustLot(t, "L3", "C", 5, 12, day0.Add(48*time.Hour))
	early := mustLot(t, "L1", "A", 5, 10, day0)
	inactive := mustLot(t, "L2", "B", 5, 11, day0.Add(24*time.Hour))
	inactive.Active = false

	for _, lot := range []*entities.Lot{late, early, inactive} {
		if err := repos.Lots.CreateLot(ctx, lot); err != nil {
			t.Fatalf("Failed to create lot: %v", err)
		}
	}

	all, err := repos.Lots.ListLotsByItem(ctx, "BOLT", repositories.LotFilter{})
	if err != nil {
		t.Fatalf("Failed to list lots: %v", err)
	}
	if len(all) != 3 || all[0].Code != "A" || all[1].Code != "B" || all[2].Code != "C" {
		t.Fatalf("Expected FIFO order A, B, C; got %d lots", len(all))
	}

	active, _ := repos.Lots.ListLotsByItem(ctx, "BOLT", repositories.LotFilter{ActiveOnly: true})
	if len(active) != 2 {
		t.Errorf("Expected 2 active lots, got %d", len(active))
	}

	asOf := day0.Add(24 * time.Hour)
	historical, _ := repos.Lots.ListLotsByItem(ctx, "BOLT", repositories.LotFilter{ReceivedOnOrBefore: &asOf})
	if len(historical) != 2 || historical[1].Code != "B" {
		t.Errorf("Expected lots A and B as of day 1, got %d lots", len(historical))
	}

	if err := repos.Lots.CreateLot(ctx, mustLot(t, "L9", "A", 1, 1, day0)); !errors.Is(err, entities.ErrInvalidArgument) {
		t.Errorf("Expected duplicate code to fail with ErrInvalidArgument, got %v", err)
	}
}

func TestLotRepository_UpdateLotVersionCheck(t *testing.T) {
	ctx := context.Background()
	repos := NewStore(1).Repositories()

	if err := repos.Lots.CreateLot(ctx, mustLot(t, "L1", "A", 5, 10, day0)); err != nil {
		t.Fatalf("Failed to create lot: %v", err)
	}

	first, _ := repos.Lots.GetLot(ctx, "L1")
	stale, _ := repos.Lots.GetLot(ctx, "L1")

	first.CurrentUnitCost = entities.DecimalPtr(decimal.NewFromInt(12))
	if err := repos.Lots.UpdateLot(ctx, first); err != nil {
		t.Fatalf("Failed to update lot: %v", err)
	}
	if first.Version != 2 {
		t.Errorf("Expected version 2 after update, got %d", first.Version)
	}

	stale.CurrentUnitCost = entities.DecimalPtr(decimal.NewFromInt(15))
	err := repos.Lots.UpdateLot(ctx, stale)
	if !errors.Is(err, entities.ErrConcurrentModification) {
		t.Fatalf("Expected ErrConcurrentModification, got %v", err)
	}

	stored, _ := repos.Lots.GetLot(ctx, "L1")
	if !stored.CurrentUnitCost.Equal(decimal.NewFromInt(12)) {
		t.Errorf("Expected current cost 12, got %s", stored.CurrentUnitCost)
	}
}

func TestStore_WithinTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore(1)
	if err := store.Repositories().Lots.CreateLot(ctx, mustLot(t, "L1", "A", 5, 10, day0)); err != nil {
		t.Fatalf("Failed to create lot: %v", err)
	}

	boom := errors.New("boom")
	err := store.WithinTransaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		lot, err := repos.Lots.GetLotForUpdate(ctx, "L1")
		if err != nil {
			return err
		}
		lot.CurrentUnitCost = entities.DecimalPtr(decimal.NewFromInt(99))
		if err := repos.Lots.UpdateLot(ctx, lot); err != nil {
			return err
		}
		if err := repos.Revaluations.CreateRecord(ctx, &entities.RevaluationRecord{ID: "R1", LotID: "L1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	lot, _ := store.Repositories().Lots.GetLot(ctx, "L1")
	if !lot.CurrentUnitCost.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected rolled back cost 10, got %s", lot.CurrentUnitCost)
	}
	records, _ := store.Repositories().Revaluations.ListAll(ctx)
	if len(records) != 0 {
		t.Errorf("Expected no revaluation records after rollback, got %d", len(records))
	}
}

func TestStore_WithinTransactionIsolatesUncommittedWrites(t *testing.T) {
	ctx := context.Background()
	store := NewStore(1)
	if err := store.Repositories().Lots.CreateLot(ctx, mustLot(t, "L1", "A", 5, 10, day0)); err != nil {
		t.Fatalf("Failed to create lot: %v", err)
	}

	err := store.WithinTransaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		lot, _ := repos.Lots.GetLotForUpdate(ctx, "L1")
		lot.CurrentUnitCost = entities.DecimalPtr(decimal.NewFromInt(20))
		if err := repos.Lots.UpdateLot(ctx, lot); err != nil {
			return err
		}

		outside, _ := store.Repositories().Lots.GetLot(ctx, "L1")
		if !outside.CurrentUnitCost.Equal(decimal.NewFromInt(10)) {
			t.Errorf("Expected readers outside the transaction to see 10, got %s", outside.CurrentUnitCost)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}

	lot, _ := store.Repositories().Lots.GetLot(ctx, "L1")
	if !lot.CurrentUnitCost.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Expected committed cost 20, got %s", lot.CurrentUnitCost)
	}
}

func TestLedgerRepository_FindReversal(t *testing.T) {
	ctx := context.Background()
	repos := NewStore(1).Repositories()

	issue, err := entities.NewLedgerTransaction("T1", "L1", entities.TransactionIssue, decimal.NewFromInt(-3), decimal.NewFromInt(10), entities.CostSourceActual, "WO-1", day0)
	if err != nil {
		t.Fatalf("Failed to create transaction: %v", err)
	}
	if err := repos.Ledger.AppendTransaction(ctx, issue); err != nil {
		t.Fatalf("Failed to append transaction: %v", err)
	}

	found, err := repos.Ledger.FindReversal(ctx, "T1")
	if err != nil || found != nil {
		t.Fatalf("Expected no reversal yet, got %v, %v", found, err)
	}

	reversal, err := entities.NewLedgerTransaction("T2", "L1", issue.Type.Reversal(), decimal.NewFromInt(3), decimal.NewFromInt(10), entities.CostSourceActual, "WO-1", day0)
	if err != nil {
		t.Fatalf("Failed to create reversal: %v", err)
	}
	reversal.ReversesID = "T1"
	if err := repos.Ledger.AppendTransaction(ctx, reversal); err != nil {
		t.Fatalf("Failed to append reversal: %v", err)
	}

	found, _ = repos.Ledger.FindReversal(ctx, "T1")
	if found == nil || found.ID != "T2" {
		t.Errorf("Expected reversal T2, got %v", found)
	}

	txs, _ := repos.Ledger.ListTransactionsByLot(ctx, "L1")
	if len(txs) != 2 || txs[0].ID != "T1" {
		t.Errorf("Expected two transactions in append order, got %d", len(txs))
	}
}

func TestAssemblyRepository_ListEdgesByParent(t *testing.T) {
	ctx := context.Background()
	repos := NewStore(3).Repositories()

	e1, _ := entities.NewAssemblyEdge("KIT", "BOLT", decimal.NewFromInt(2), decimal.Zero, decimal.NewFromInt(1), entities.EffectiveWindow{})
	e2, _ := entities.NewAssemblyEdge("KIT", "NUT", decimal.NewFromInt(2), decimal.Zero, decimal.NewFromInt(1), entities.EffectiveWindow{})
	e3, _ := entities.NewAssemblyEdge("NUT", "STEEL", decimal.NewFromInt(1), decimal.Zero, decimal.NewFromInt(1), entities.EffectiveWindow{})

	if err := repos.Assemblies.SaveEdges(ctx, []*entities.AssemblyEdge{e1, e2, e3}); err != nil {
		t.Fatalf("Failed to save edges: %v", err)
	}

	edges, _ := repos.Assemblies.ListEdgesByParent(ctx, "KIT")
	if len(edges) != 2 {
		t.Fatalf("Expected 2 edges for KIT, got %d", len(edges))
	}
	if edges[0].ChildID != "BOLT" || edges[1].ChildID != "NUT" {
		t.Errorf("Expected insertion order BOLT, NUT; got %s, %s", edges[0].ChildID, edges[1].ChildID)
	}

	none, _ := repos.Assemblies.ListEdgesByParent(ctx, "BOLT")
	if len(none) != 0 {
		t.Errorf("Expected leaf to have no edges, got %d", len(none))
	}
}
