package commands

import (
	"context"
	"errors"

	"github.com/vsinha/costing/pkg/interfaces/cli/output"
)

func runCost(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "cost")
	itemRef := fs.String("item", "", "Item id or SKU")
	if err := fs.Parse(args); err != nil {
		return err
	}

	item, err := app.item(ctx, *itemRef)
	if err != nil {
		return err
	}
	result, err := app.Costing.GetCurrentCost(ctx, item.ID)
	if err != nil {
		return err
	}
	return output.Cost(app.Out, app.Format, result)
}

func runHistory(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "history")
	itemRef := fs.String("item", "", "Item id or SKU")
	asOfFlag := fs.String("as-of", "", "Date to value the item at (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	asOf, err := parseDate("as-of", *asOfFlag)
	if err != nil {
		return err
	}
	if asOf == nil {
		return errors.New("-as-of is required")
	}
	item, err := app.item(ctx, *itemRef)
	if err != nil {
		return err
	}
	result, err := app.Costing.GetHistoricalCost(ctx, item.ID, *asOf)
	if err != nil {
		return err
	}
	return output.Cost(app.Out, app.Format, result)
}

func runInspect(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "inspect")
	itemRef := fs.String("item", "", "Item id or SKU")
	asOfFlag := fs.String("as-of", "", "Roll up with edges and lots as of this date (YYYY-MM-DD)")
	noEstimates := fs.Bool("no-estimates", false, "Fail instead of falling back to estimated costs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	asOf, err := parseDate("as-of", *asOfFlag)
	if err != nil {
		return err
	}
	item, err := app.item(ctx, *itemRef)
	if err != nil {
		return err
	}
	result, err := app.Costing.InspectCogs(ctx, item.ID, asOf, !*noEstimates)
	if err != nil {
		return err
	}
	return output.Cogs(app.Out, app.Format, result)
}

func runAudit(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "audit")
	itemRef := fs.String("item", "", "Item id or SKU; makes -lot a lot code")
	lotRef := fs.String("lot", "", "Lot id, or lot code with -item")
	if err := fs.Parse(args); err != nil {
		return err
	}

	lot, err := app.lot(ctx, *itemRef, *lotRef)
	if err != nil {
		return err
	}
	records, err := app.Costing.RevaluationHistory(ctx, lot.ID)
	if err != nil {
		return err
	}
	return output.History(app.Out, app.Format, records)
}

func runRevalue(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "revalue")
	itemRef := fs.String("item", "", "Item id or SKU; makes -lot a lot code")
	lotRef := fs.String("lot", "", "Lot id, or lot code with -item")
	costFlag := fs.String("cost", "", "New unit cost")
	reason := fs.String("reason", "", "Reason recorded on the revaluation")
	actor := fs.String("actor", app.Config.Actor, "Who is revaluing (env COSTING_ACTOR)")
	noPropagate := fs.Bool("no-propagate", false, "Only revalue this lot")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cost, err := parseDecimal("cost", *costFlag)
	if err != nil {
		return err
	}
	lot, err := app.lot(ctx, *itemRef, *lotRef)
	if err != nil {
		return err
	}
	result, err := app.Costing.RevalueLot(ctx, lot.ID, cost, *reason, *actor, !*noPropagate)
	if err != nil {
		return err
	}
	return output.Revaluation(app.Out, app.Format, result)
}
