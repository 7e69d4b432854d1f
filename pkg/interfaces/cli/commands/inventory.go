package commands

import (
	"context"
	"errors"
	"time"

	"github.com/vsinha/costing/pkg/application/dto"
	"github.com/vsinha/costing/pkg/application/services/inventory"
	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/services"
	"github.com/vsinha/costing/pkg/interfaces/cli/output"
)

func runReceive(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "receive")
	itemRef := fs.String("item", "", "Item id or SKU")
	code := fs.String("code", "", "Lot code, unique per item")
	qtyFlag := fs.String("qty", "", "Quantity received")
	costFlag := fs.String("cost", "", "Unit cost per -unit")
	unit := fs.String("unit", services.CanonicalUnit, "Unit of -qty: kg, g, lb, l, ml, gal...")
	densityFlag := fs.String("density", "", "Density in kg/l for volume units")
	dateFlag := fs.String("date", "", "Receipt date (YYYY-MM-DD), defaults to now")
	reference := fs.String("ref", "", "Reference recorded on the receipt")
	if err := fs.Parse(args); err != nil {
		return err
	}

	qty, err := parseDecimal("qty", *qtyFlag)
	if err != nil {
		return err
	}
	cost, err := parseDecimal("cost", *costFlag)
	if err != nil {
		return err
	}
	density, err := parseOptionalDecimal("density", *densityFlag)
	if err != nil {
		return err
	}
	kg, costPerKg, err := services.ToCanonical(qty, cost, *unit, density)
	if err != nil {
		return err
	}

	var receivedAt time.Time
	if *dateFlag != "" {
		day, err := time.Parse(dateLayout, *dateFlag)
		if err != nil {
			return errors.New("invalid -date (expected YYYY-MM-DD)")
		}
		receivedAt = day
	}

	item, err := app.item(ctx, *itemRef)
	if err != nil {
		return err
	}
	lot, tx, err := app.Inventory.ReceiveLot(ctx, inventory.ReceiveRequest{
		ItemID:     item.ID,
		LotCode:    *code,
		Quantity:   kg,
		UnitCost:   costPerKg,
		ReceivedAt: receivedAt,
		Reference:  *reference,
	})
	if err != nil {
		return err
	}
	return output.Receipt(app.Out, app.Format, lot, tx)
}

func runIssue(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "issue")
	itemRef := fs.String("item", "", "Item id or SKU")
	qtyFlag := fs.String("qty", "", "Quantity to issue in kg")
	allowNegative := fs.Bool("allow-negative", false, "Drive the newest lot negative when stock runs short")
	note := fs.String("note", "", "Audit note, required with -allow-negative")
	reference := fs.String("ref", "", "Reference recorded on the issue")
	if err := fs.Parse(args); err != nil {
		return err
	}

	qty, err := parseDecimal("qty", *qtyFlag)
	if err != nil {
		return err
	}
	item, err := app.item(ctx, *itemRef)
	if err != nil {
		return err
	}
	result, err := app.Inventory.IssueStock(ctx, inventory.IssueRequest{
		ItemID:        item.ID,
		Quantity:      qty,
		AllowNegative: *allowNegative,
		OverrideNote:  *note,
		Reference:     *reference,
	})
	if err != nil {
		return err
	}
	return output.Issue(app.Out, app.Format, result)
}

func runAdjust(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "adjust")
	itemRef := fs.String("item", "", "Item id or SKU; makes -lot a lot code")
	lotRef := fs.String("lot", "", "Lot id, or lot code with -item")
	deltaFlag := fs.String("delta", "", "Signed quantity change in kg")
	countFlag := fs.String("count", "", "Counted quantity in kg, records a stocktake instead")
	reason := fs.String("reason", "", "Reason recorded on the adjustment")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*deltaFlag == "") == (*countFlag == "") {
		return errors.New("exactly one of -delta or -count is required")
	}

	lot, err := app.lot(ctx, *itemRef, *lotRef)
	if err != nil {
		return err
	}

	var tx *entities.LedgerTransaction
	if *countFlag != "" {
		counted, err := parseDecimal("count", *countFlag)
		if err != nil {
			return err
		}
		lot, tx, err = app.Inventory.Stocktake(ctx, lot.ID, counted, *reason)
		if err != nil {
			return err
		}
	} else {
		delta, err := parseDecimal("delta", *deltaFlag)
		if err != nil {
			return err
		}
		lot, tx, err = app.Inventory.AdjustLot(ctx, lot.ID, delta, *reason)
		if err != nil {
			return err
		}
	}
	return output.Transaction(app.Out, app.Format, lot, tx)
}

func runReverse(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "reverse")
	txID := fs.String("tx", "", "Transaction id to reverse")
	reason := fs.String("reason", "", "Reason recorded on the reversal")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *txID == "" {
		return errors.New("-tx is required")
	}

	tx, err := app.Inventory.ReverseTransaction(ctx, entities.TransactionID(*txID), *reason)
	if err != nil {
		return err
	}
	lot, err := app.Store.Repositories().Lots.GetLot(ctx, tx.LotID)
	if err != nil {
		return err
	}
	return output.Transaction(app.Out, app.Format, lot, tx)
}

func runDeactivate(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "deactivate")
	itemRef := fs.String("item", "", "Item id or SKU; makes -lot a lot code")
	lotRef := fs.String("lot", "", "Lot id, or lot code with -item")
	if err := fs.Parse(args); err != nil {
		return err
	}

	lot, err := app.lot(ctx, *itemRef, *lotRef)
	if err != nil {
		return err
	}
	lot, err = app.Inventory.DeactivateLot(ctx, lot.ID)
	if err != nil {
		return err
	}
	return output.Lot(app.Out, app.Format, lot)
}

func runReconcile(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "reconcile")
	itemRef := fs.String("item", "", "Item id or SKU; makes -lot a lot code")
	lotRef := fs.String("lot", "", "Only reconcile this lot (id, or code with -item)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *lotRef == "" {
		mismatches, err := app.Inventory.ReconcileAll(ctx)
		if err != nil {
			return err
		}
		return output.Reconciliation(app.Out, app.Format, mismatches)
	}

	lot, err := app.lot(ctx, *itemRef, *lotRef)
	if err != nil {
		return err
	}
	mismatch, err := app.Inventory.Reconcile(ctx, lot.ID)
	if err != nil {
		return err
	}
	var mismatches []dto.ReconciliationMismatch
	if mismatch != nil {
		mismatches = append(mismatches, *mismatch)
	}
	return output.Reconciliation(app.Out, app.Format, mismatches)
}
