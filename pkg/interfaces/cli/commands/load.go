package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/services"
	"github.com/vsinha/costing/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/costing/pkg/interfaces/cli/output"
)

func runLoad(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "load")
	dir := fs.String("dir", "", "Directory with items.csv, assembly.csv and optional lots.csv")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return errors.New("-dir is required")
	}

	data, err := csv.NewLoader().LoadDir(*dir)
	if err != nil {
		return fmt.Errorf("error loading %s: %w", *dir, err)
	}
	summary, err := app.Importer.Import(ctx, data)
	if err != nil {
		return err
	}
	return output.Import(app.Out, app.Format, summary)
}

func runValidate(_ context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "validate")
	dir := fs.String("dir", "", "Directory with items.csv and assembly.csv")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return errors.New("-dir is required")
	}

	data, err := csv.NewLoader().LoadDir(*dir)
	if err != nil {
		return fmt.Errorf("error loading %s: %w", *dir, err)
	}
	edges := make([]entities.AssemblyEdge, 0, len(data.Edges))
	for _, e := range data.Edges {
		edges = append(edges, *e)
	}

	result := services.NewBOMValidator().ValidateEdges(edges, data.Items)
	if err := output.Validation(app.Out, app.Format, result); err != nil {
		return err
	}
	if !result.IsValid() {
		return fmt.Errorf("assembly graph has %d problems", len(result.Errors))
	}
	return nil
}
