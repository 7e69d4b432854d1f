package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
	"github.com/vsinha/costing/pkg/infrastructure/events"
	"github.com/vsinha/costing/pkg/infrastructure/repositories/gormstore"
	fixtures "github.com/vsinha/costing/pkg/infrastructure/testing"
)

var issuedAt = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newService(store repositories.Store, opts ...Option) *InventoryService {
	logger, _ := test.NewNullLogger()
	seq := 0
	opts = append([]Option{
		WithClock(func() time.Time { return issuedAt }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("ID-%03d", seq)
		}),
	}, opts...)
	return NewInventoryService(store, logger, opts...)
}

func receive(t *testing.T, svc *InventoryService, itemID, code, qty, cost string, at time.Time) *entities.Lot {
	t.Helper()
	lot, _, err := svc.ReceiveLot(context.Background(), ReceiveRequest{
		ItemID:     entities.ItemID(itemID),
		LotCode:    code,
		Quantity:   fixtures.Dec(qty),
		UnitCost:   fixtures.Dec(cost),
		ReceivedAt: at,
		Reference:  "PO-1",
	})
	if err != nil {
		t.Fatalf("ReceiveLot %s failed: %v", code, err)
	}
	return lot
}

func lotQuantity(t *testing.T, store repositories.Store, id entities.LotID) string {
	t.Helper()
	lot, err := store.Repositories().Lots.GetLot(context.Background(), id)
	if err != nil {
		t.Fatalf("GetLot failed: %v", err)
	}
	return lot.Quantity.String()
}

func TestReceiveLot(t *testing.T) {
	ctx := context.Background()
	store, seed := fixtures.NewSeeder()
	seed.Items(fixtures.MustItem("FLOUR", false))
	svc := newService(store)

	lot, tx, err := svc.ReceiveLot(ctx, ReceiveRequest{
		ItemID:     "FLOUR",
		LotCode:    "F-001",
		Quantity:   fixtures.Dec("25"),
		UnitCost:   fixtures.Dec("1.255"),
		ReceivedAt: fixtures.Day(0),
		Reference:  "PO-77",
	})
	if err != nil {
		t.Fatalf("ReceiveLot failed: %v", err)
	}

	for name, cost := range map[string]string{
		"legacy":   lot.UnitCost.String(),
		"original": lot.OriginalUnitCost.String(),
		"current":  lot.CurrentUnitCost.String(),
	} {
		if cost != "1.26" {
			t.Errorf("Expected %s cost 1.26, got %s", name, cost)
		}
	}
	if tx.Type != entities.TransactionReceipt || !tx.Quantity.Equal(fixtures.Dec("25")) || tx.Reference != "PO-77" {
		t.Errorf("Unexpected receipt transaction %+v", tx)
	}
	if !tx.ExtendedCost.Equal(fixtures.Dec("31.50")) {
		t.Errorf("Expected extended cost 31.50, got %s", tx.ExtendedCost)
	}

	tests := []struct {
		name string
		req  ReceiveRequest
		want error
	}{
		{"duplicate code", ReceiveRequest{ItemID: "FLOUR", LotCode: "F-001", Quantity: fixtures.Dec("1"), UnitCost: fixtures.Dec("1")}, entities.ErrInvalidArgument},
		{"zero quantity", ReceiveRequest{ItemID: "FLOUR", LotCode: "F-002", Quantity: fixtures.Dec("0"), UnitCost: fixtures.Dec("1")}, entities.ErrInvalidArgument},
		{"negative cost", ReceiveRequest{ItemID: "FLOUR", LotCode: "F-003", Quantity: fixtures.Dec("1"), UnitCost: fixtures.Dec("-1")}, entities.ErrInvalidArgument},
		{"unknown item", ReceiveRequest{ItemID: "SUGAR", LotCode: "S-001", Quantity: fixtures.Dec("1"), UnitCost: fixtures.Dec("1")}, entities.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := svc.ReceiveLot(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestIssueStock_FIFOAcrossLots(t *testing.T) {
	ctx := context.Background()
	store, seed := fixtures.NewSeeder()
	seed.Items(fixtures.MustItem("FLOUR", false))
	svc := newService(store)

	older := receive(t, svc, "FLOUR", "F-001", "10", "2.00", fixtures.Day(0))
	newer := receive(t, svc, "FLOUR", "F-002", "10", "3.00", fixtures.Day(1))

	result, err := svc.IssueStock(ctx, IssueRequest{ItemID: "FLOUR", Quantity: fixtures.Dec("15"), Reference: "WO-9"})
	if err != nil {
		t.Fatalf("IssueStock failed: %v", err)
	}

	if len(result.Issues) != 2 {
		t.Fatalf("Expected 2 lot issues, got %d", len(result.Issues))
	}
	if result.Issues[0].LotID != older.ID || !result.Issues[0].Quantity.Equal(fixtures.Dec("10")) {
		t.Errorf("Expected the older lot to be drained first, got %+v", result.Issues[0])
	}
	if result.Issues[1].LotID != newer.ID || !result.Issues[1].Quantity.Equal(fixtures.Dec("5")) {
		t.Errorf("Expected 5 from the newer lot, got %+v", result.Issues[1])
	}
	if !result.TotalCost.Equal(fixtures.Dec("35")) {
		t.Errorf("Expected total cost 35.00, got %s", result.TotalCost)
	}
	for _, tx := range result.Transactions {
		if tx.Type != entities.TransactionIssue || !tx.Quantity.IsNegative() {
			t.Errorf("Expected negative ISSUE transaction, got %s %s", tx.Type, tx.Quantity)
		}
	}

	if q := lotQuantity(t, store, older.ID); q != "0" {
		t.Errorf("Expected older lot at 0, got %s", q)
	}
	if q := lotQuantity(t, store, newer.ID); q != "5" {
		t.Errorf("Expected newer lot at 5, got %s", q)
	}

	mismatches, err := svc.ReconcileAll(ctx)
	if err != nil || len(mismatches) != 0 {
		t.Errorf("Expected ledger to reconcile, got %v (%v)", mismatches, err)
	}
}

func TestIssueStock_InsufficientLeavesNothingBehind(t *testing.T) {
	ctx := context.Background()
	store, seed := fixtures.NewSeeder()
	seed.Items(fixtures.MustItem("FLOUR", false))
	svc := newService(store)

	lot := receive(t, svc, "FLOUR", "F-001", "10", "2.00", fixtures.Day(0))
	receive(t, svc, "FLOUR", "F-002", "10", "3.00", fixtures.Day(1))

	_, err := svc.IssueStock(ctx, IssueRequest{ItemID: "FLOUR", Quantity: fixtures.Dec("25")})
	var short *entities.InsufficientStockError
	if !errors.As(err, &short) {
		t.Fatalf("Expected InsufficientStockError, got %v", err)
	}
	if short.SKU != "FLOUR" || !short.Shortfall.Equal(fixtures.Dec("5")) {
		t.Errorf("Expected FLOUR short by 5, got %s short by %s", short.SKU, short.Shortfall)
	}

	if q := lotQuantity(t, store, lot.ID); q != "10" {
		t.Errorf("Expected lot untouched at 10, got %s", q)
	}
	txs, _ := store.Repositories().Ledger.ListTransactionsByLot(ctx, lot.ID)
	if len(txs) != 1 {
		t.Errorf("Expected only the receipt on the ledger, got %d transactions", len(txs))
	}
}

func TestIssueStock_NegativeOverride(t *testing.T) {
	ctx := context.Background()
	store, seed := fixtures.NewSeeder()
	seed.Items(fixtures.MustItem("FLOUR", false), fixtures.MustItem("SUGAR", false))
	svc := newService(store)

	receive(t, svc, "FLOUR", "F-001", "10", "2.00", fixtures.Day(0))
	newest := receive(t, svc, "FLOUR", "F-002", "10", "3.00", fixtures.Day(1))

	if _, err := svc.IssueStock(ctx, IssueRequest{ItemID: "FLOUR", Quantity: fixtures.Dec("25"), AllowNegative: true, OverrideNote: "  "}); !errors.Is(err, entities.ErrInvalidOverride) {
		t.Fatalf("Expected ErrInvalidOverride without a note, got %v", err)
	}

	result, err := svc.IssueStock(ctx, IssueRequest{
		ItemID:        "FLOUR",
		Quantity:      fixtures.Dec("25"),
		AllowNegative: true,
		OverrideNote:  "count pending",
		Reference:     "WO-1",
	})
	if err != nil {
		t.Fatalf("IssueStock with override failed: %v", err)
	}
	if !result.Quantity.Equal(fixtures.Dec("25")) || !result.Override {
		t.Errorf("Expected full 25 issued under override, got %s", result.Quantity)
	}
	if q := lotQuantity(t, store, newest.ID); q != "-5" {
		t.Errorf("Expected newest lot driven to -5, got %s", q)
	}
	last := result.Transactions[len(result.Transactions)-1]
	if !strings.Contains(last.Reference, "count pending") {
		t.Errorf("Expected override note in reference, got %q", last.Reference)
	}

	if _, err := svc.IssueStock(ctx, IssueRequest{ItemID: "SUGAR", Quantity: fixtures.Dec("1"), AllowNegative: true, OverrideNote: "x"}); !errors.Is(err, entities.ErrInsufficientStock) {
		t.Errorf("Expected ErrInsufficientStock with no lots at all, got %v", err)
	}
}

func TestIssueStock_ZeroQuantityIsNoop(t *testing.T) {
	store, seed := fixtures.NewSeeder()
	seed.Items(fixtures.MustItem("FLOUR", false))
	svc := newService(store)

	result, err := svc.IssueStock(context.Background(), IssueRequest{ItemID: "FLOUR", Quantity: fixtures.Dec("0")})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(result.Issues) != 0 || len(result.Transactions) != 0 {
		t.Errorf("Expected empty result, got %+v", result)
	}
}

func TestIssueStock_SkipsDeactivatedLots(t *testing.T) {
	ctx := context.Background()
	store, seed := fixtures.NewSeeder()
	seed.Items(fixtures.MustItem("FLOUR", false))
	svc := newService(store)

	quarantined := receive(t, svc, "FLOUR", "F-001", "10", "2.00", fixtures.Day(0))
	good := receive(t, svc, "FLOUR", "F-002", "10", "3.00", fixtures.Day(1))

	deactivated, err := svc.DeactivateLot(ctx, quarantined.ID)
	if err != nil || deactivated.Active {
		t.Fatalf("DeactivateLot failed: %v", err)
	}

	result, err := svc.IssueStock(ctx, IssueRequest{ItemID: "FLOUR", Quantity: fixtures.Dec("4")})
	if err != nil {
		t.Fatalf("IssueStock failed: %v", err)
	}
	if len(result.Issues) != 1 || result.Issues[0].LotID != good.ID {
		t.Errorf("Expected issue from the active lot only, got %+v", result.Issues)
	}
	if !result.TotalCost.Equal(fixtures.Dec("12")) {
		t.Errorf("Expected cost 12.00, got %s", result.TotalCost)
	}
}

func TestAdjustAndStocktake(t *testing.T) {
	ctx := context.Background()
	store, seed := fixtures.NewSeeder()
	seed.Items(fixtures.MustItem("FLOUR", false))
	svc := newService(store)
	lot := receive(t, svc, "FLOUR", "F-001", "10", "2.00", fixtures.Day(0))

	adjusted, tx, err := svc.AdjustLot(ctx, lot.ID, fixtures.Dec("1.5"), "found a sack")
	if err != nil {
		t.Fatalf("AdjustLot failed: %v", err)
	}
	if tx.Type != entities.TransactionAdjustment || !adjusted.Quantity.Equal(fixtures.Dec("11.5")) {
		t.Errorf("Expected ADJUSTMENT to 11.5, got %s to %s", tx.Type, adjusted.Quantity)
	}

	counted, tx, err := svc.Stocktake(ctx, lot.ID, fixtures.Dec("8"), "annual count")
	if err != nil {
		t.Fatalf("Stocktake failed: %v", err)
	}
	if tx.Type != entities.TransactionStocktake || !tx.Quantity.Equal(fixtures.Dec("-3.5")) {
		t.Errorf("Expected STOCKTAKE of -3.5, got %s %s", tx.Type, tx.Quantity)
	}
	if !counted.Quantity.Equal(fixtures.Dec("8")) {
		t.Errorf("Expected lot at 8, got %s", counted.Quantity)
	}

	_, tx, err = svc.Stocktake(ctx, lot.ID, fixtures.Dec("8"), "recount")
	if err != nil || tx != nil {
		t.Errorf("Expected matching count to write nothing, got %v (%v)", tx, err)
	}

	if _, _, err := svc.AdjustLot(ctx, lot.ID, fixtures.Dec("0"), "noop"); !errors.Is(err, entities.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for zero delta, got %v", err)
	}
	if _, _, err := svc.Stocktake(ctx, lot.ID, fixtures.Dec("-1"), "bad"); !errors.Is(err, entities.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for negative count, got %v", err)
	}

	if mismatch, err := svc.Reconcile(ctx, lot.ID); err != nil || mismatch != nil {
		t.Errorf("Expected lot to reconcile, got %+v (%v)", mismatch, err)
	}
}

func TestReverseTransaction(t *testing.T) {
	ctx := context.Background()
	store, seed := fixtures.NewSeeder()
	seed.Items(fixtures.MustItem("FLOUR", false))
	svc := newService(store)
	lot := receive(t, svc, "FLOUR", "F-001", "10", "2.00", fixtures.Day(0))

	issued, err := svc.IssueStock(ctx, IssueRequest{ItemID: "FLOUR", Quantity: fixtures.Dec("4")})
	if err != nil {
		t.Fatalf("IssueStock failed: %v", err)
	}
	original := issued.Transactions[0]

	reversal, err := svc.ReverseTransaction(ctx, original.ID, "wrong work order")
	if err != nil {
		t.Fatalf("ReverseTransaction failed: %v", err)
	}
	if reversal.Type != "ISSUE_REVERSAL" || reversal.ReversesID != original.ID {
		t.Errorf("Expected ISSUE_REVERSAL linked to %s, got %s -> %s", original.ID, reversal.Type, reversal.ReversesID)
	}
	if !reversal.Quantity.Equal(fixtures.Dec("4")) || !reversal.UnitCost.Equal(original.UnitCost) {
		t.Errorf("Expected +4 at the original cost, got %s at %s", reversal.Quantity, reversal.UnitCost)
	}
	if q := lotQuantity(t, store, lot.ID); q != "10" {
		t.Errorf("Expected lot restored to 10, got %s", q)
	}

	if _, err := svc.ReverseTransaction(ctx, original.ID, "again"); !errors.Is(err, entities.ErrInvalidArgument) {
		t.Errorf("Expected double reversal to fail, got %v", err)
	}
	if _, err := svc.ReverseTransaction(ctx, reversal.ID, "undo the undo"); !errors.Is(err, entities.ErrInvalidArgument) {
		t.Errorf("Expected reversing a reversal to fail, got %v", err)
	}
	if _, err := svc.ReverseTransaction(ctx, "NOPE", "x"); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestReconcileAll_ReportsDrift(t *testing.T) {
	ctx := context.Background()
	store, seed := fixtures.NewSeeder()
	seed.Items(fixtures.MustItem("FLOUR", false))
	svc := newService(store)
	lot := receive(t, svc, "FLOUR", "F-001", "10", "2.00", fixtures.Day(0))
	receive(t, svc, "FLOUR", "F-002", "10", "2.00", fixtures.Day(1))

	// bypass the service so the ledger no longer explains the balance
	drifted, _ := store.Repositories().Lots.GetLot(ctx, lot.ID)
	drifted.Quantity = fixtures.Dec("7")
	if err := store.Repositories().Lots.UpdateLot(ctx, drifted); err != nil {
		t.Fatalf("UpdateLot failed: %v", err)
	}

	mismatches, err := svc.ReconcileAll(ctx)
	if err != nil {
		t.Fatalf("ReconcileAll failed: %v", err)
	}
	if len(mismatches) != 1 {
		t.Fatalf("Expected 1 mismatch, got %d", len(mismatches))
	}
	m := mismatches[0]
	if m.LotCode != "F-001" || !m.LotQuantity.Equal(fixtures.Dec("7")) || !m.LedgerQuantity.Equal(fixtures.Dec("10")) {
		t.Errorf("Unexpected mismatch %+v", m)
	}
}

func TestInventoryEvents(t *testing.T) {
	ctx := context.Background()
	store, seed := fixtures.NewSeeder()
	seed.Items(fixtures.MustItem("FLOUR", false))

	logger, _ := test.NewNullLogger()
	eventStore := events.NewInMemoryEventStore(logger)
	received := make(chan string, 8)
	handler := &recordingHandler{seen: received}
	if err := eventStore.Subscribe([]string{events.LotReceivedEvent, events.StockIssuedEvent}, handler); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	svc := newService(store, WithPublisher(eventStore))
	lot := receive(t, svc, "FLOUR", "F-001", "10", "2.00", fixtures.Day(0))
	if _, err := svc.IssueStock(ctx, IssueRequest{ItemID: "FLOUR", Quantity: fixtures.Dec("20")}); err == nil {
		t.Fatal("Expected insufficient stock")
	}
	if _, err := svc.IssueStock(ctx, IssueRequest{ItemID: "FLOUR", Quantity: fixtures.Dec("3")}); err != nil {
		t.Fatalf("IssueStock failed: %v", err)
	}
	eventStore.Drain()
	close(received)

	var types []string
	for eventType := range received {
		types = append(types, eventType)
	}
	if len(types) != 2 {
		t.Fatalf("Expected receipt and one successful issue, got %v", types)
	}

	lotEvents, _ := eventStore.ReadEvents(events.LotStream(lot.ID), 1)
	if len(lotEvents) != 1 || lotEvents[0].Type() != events.LotReceivedEvent {
		t.Errorf("Expected lot.received on the lot stream, got %d events", len(lotEvents))
	}
	itemEvents, _ := eventStore.ReadEvents(events.ItemStream("FLOUR"), 1)
	if len(itemEvents) != 1 || itemEvents[0].Type() != events.StockIssuedEvent {
		t.Errorf("Expected stock.issued on the item stream, got %d events", len(itemEvents))
	}
}

type recordingHandler struct {
	seen chan string
}

func (h *recordingHandler) Handle(event events.Event) error {
	h.seen <- event.Type()
	return nil
}

func (h *recordingHandler) CanHandle(string) bool { return true }

func TestInventoryOnSQLite(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	store, err := gormstore.Open(gormstore.MemoryPath, logger)
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	defer store.Close()

	seed := &fixtures.Seeder{Ctx: ctx, Repos: store.Repositories()}
	seed.Items(fixtures.MustItem("FLOUR", false))
	svc := newService(store)

	receive(t, svc, "FLOUR", "F-001", "10", "2.00", fixtures.Day(0))
	newer := receive(t, svc, "FLOUR", "F-002", "10", "3.00", fixtures.Day(1))

	result, err := svc.IssueStock(ctx, IssueRequest{ItemID: "FLOUR", Quantity: fixtures.Dec("12.5")})
	if err != nil {
		t.Fatalf("IssueStock failed: %v", err)
	}
	if !result.TotalCost.Equal(fixtures.Dec("27.50")) {
		t.Errorf("Expected 20 + 7.50 = 27.50, got %s", result.TotalCost)
	}
	if q := lotQuantity(t, store, newer.ID); q != "7.5" {
		t.Errorf("Expected newer lot at 7.5, got %s", q)
	}

	if _, err := svc.IssueStock(ctx, IssueRequest{ItemID: "FLOUR", Quantity: fixtures.Dec("100")}); !errors.Is(err, entities.ErrInsufficientStock) {
		t.Fatalf("Expected ErrInsufficientStock, got %v", err)
	}
	if q := lotQuantity(t, store, newer.ID); q != "7.5" {
		t.Errorf("Expected failed issue to roll back, got %s", q)
	}

	mismatches, err := svc.ReconcileAll(ctx)
	if err != nil || len(mismatches) != 0 {
		t.Errorf("Expected ledger to reconcile on sqlite, got %v (%v)", mismatches, err)
	}
}
