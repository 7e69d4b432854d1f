package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/costing/pkg/application/dto"
	"github.com/vsinha/costing/pkg/application/services/production"
	"github.com/vsinha/costing/pkg/interfaces/cli/output"
)

// inputList collects repeated -input ITEM=QTY flags
type inputList []string

func (l *inputList) String() string {
	return strings.Join(*l, ",")
}

func (l *inputList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func runProduce(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "produce")
	itemRef := fs.String("item", "", "Item id or SKU to produce")
	code := fs.String("code", "", "Lot code of the produced lot")
	qtyFlag := fs.String("qty", "", "Quantity produced in kg")
	var inputFlags inputList
	fs.Var(&inputFlags, "input", "Consumed input as ITEM=QTY, repeatable; omit to follow the item's assembly")
	allowNegative := fs.Bool("allow-negative", false, "Let inputs run negative when stock is short")
	note := fs.String("note", "", "Audit note, required with -allow-negative")
	dateFlag := fs.String("date", "", "Production date (YYYY-MM-DD), defaults to now")
	reference := fs.String("ref", "", "Reference recorded on the production")
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

	req := production.ProduceRequest{
		ItemID:        item.ID,
		LotCode:       *code,
		Quantity:      qty,
		AllowNegative: *allowNegative,
		OverrideNote:  *note,
		Reference:     *reference,
	}
	if *dateFlag != "" {
		day, err := time.Parse(dateLayout, *dateFlag)
		if err != nil {
			return fmt.Errorf("invalid -date %q (expected YYYY-MM-DD)", *dateFlag)
		}
		req.ProducedAt = day
	}

	for _, raw := range inputFlags {
		input, err := app.parseInput(ctx, raw)
		if err != nil {
			return err
		}
		req.Inputs = append(req.Inputs, input)
	}

	var result *dto.ProductionResult
	if len(req.Inputs) == 0 {
		result, err = app.Production.ProduceAssembly(ctx, req)
	} else {
		result, err = app.Production.Produce(ctx, req)
	}
	if err != nil {
		return err
	}
	return output.Production(app.Out, app.Format, result)
}

func (a *App) parseInput(ctx context.Context, raw string) (production.Input, error) {
	ref, qtyText, ok := strings.Cut(raw, "=")
	if !ok {
		return production.Input{}, fmt.Errorf("invalid -input %q (expected ITEM=QTY)", raw)
	}
	qty, err := decimal.NewFromString(strings.TrimSpace(qtyText))
	if err != nil {
		return production.Input{}, fmt.Errorf("invalid -input %q: %w", raw, err)
	}
	item, err := a.item(ctx, strings.TrimSpace(ref))
	if err != nil {
		return production.Input{}, err
	}
	return production.Input{ItemID: item.ID, Quantity: qty}, nil
}
