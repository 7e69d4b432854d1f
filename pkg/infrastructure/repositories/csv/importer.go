package csv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
	"github.com/vsinha/costing/pkg/domain/services"
)

// ImportSummary counts what an import wrote
type ImportSummary struct {
	Items int
	Edges int
	Lots  int
}

// Importer writes a Dataset into a store in one transaction
type Importer struct {
	store  repositories.Store
	logger logrus.FieldLogger
	newID  func() string
}

func NewImporter(store repositories.Store, logger logrus.FieldLogger, newID func() string) *Importer {
	return &Importer{store: store, logger: logger.WithField("module", "csv"), newID: newID}
}

// Import validates the assembly graph and writes items, edges and opening
// lots with their RECEIPT transactions. Edges and lots already in the store
// are skipped, so re-running an import only adds what is new.
func (im *Importer) Import(ctx context.Context, data *Dataset) (*ImportSummary, error) {
	edges := make([]entities.AssemblyEdge, 0, len(data.Edges))
	for _, e := range data.Edges {
		edges = append(edges, *e)
	}
	validation := services.NewBOMValidator().ValidateEdges(edges, data.Items)
	if !validation.IsValid() {
		return nil, &entities.InvalidArgumentError{Field: "assembly graph", Reason: strings.Join(validation.Errors, "; ")}
	}

	summary := &ImportSummary{}
	err := im.store.WithinTransaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		for _, item := range data.Items {
			if err := repos.Items.SaveItem(ctx, item); err != nil {
				return fmt.Errorf("saving item %s: %w", item.SKU, err)
			}
			summary.Items++
		}

		fresh, err := newEdges(ctx, repos.Assemblies, data.Edges)
		if err != nil {
			return err
		}
		if err := repos.Assemblies.SaveEdges(ctx, fresh); err != nil {
			return fmt.Errorf("saving assembly edges: %w", err)
		}
		summary.Edges = len(fresh)

		for _, row := range data.Lots {
			created, err := im.receive(ctx, repos, row)
			if err != nil {
				return fmt.Errorf("importing lot %s: %w", row.Code, err)
			}
			if created {
				summary.Lots++
			}
		}
		return nil
	})
	if err != nil {
		im.logger.WithError(err).Error("import failed")
		return nil, err
	}

	im.logger.WithFields(logrus.Fields{
		"items": summary.Items,
		"edges": summary.Edges,
		"lots":  summary.Lots,
	}).Info("import complete")
	return summary, nil
}

func (im *Importer) receive(ctx context.Context, repos repositories.Repositories, row LotRow) (bool, error) {
	if _, err := repos.Items.GetItem(ctx, row.ItemID); err != nil {
		return false, err
	}
	if _, err := repos.Lots.FindLotByCode(ctx, row.ItemID, row.Code); err == nil {
		return false, nil
	}

	lot, err := entities.NewLot(entities.LotID(im.newID()), row.ItemID, row.Code, row.Quantity, row.UnitCost, row.ReceivedAt)
	if err != nil {
		return false, err
	}
	if err := repos.Lots.CreateLot(ctx, lot); err != nil {
		return false, err
	}

	tx, err := entities.NewLedgerTransaction(entities.TransactionID(im.newID()), lot.ID, entities.TransactionReceipt,
		lot.Quantity, *lot.CurrentUnitCost, entities.CostSourceActual, "csv import", row.ReceivedAt)
	if err != nil {
		return false, err
	}
	return true, repos.Ledger.AppendTransaction(ctx, tx)
}

func newEdges(ctx context.Context, assemblies repositories.AssemblyRepository, edges []*entities.AssemblyEdge) ([]*entities.AssemblyEdge, error) {
	existing, err := assemblies.ListAllEdges(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[edgeKey(e)] = true
	}

	fresh := make([]*entities.AssemblyEdge, 0, len(edges))
	for _, e := range edges {
		if key := edgeKey(e); !seen[key] {
			seen[key] = true
			fresh = append(fresh, e)
		}
	}
	return fresh, nil
}

func edgeKey(e *entities.AssemblyEdge) string {
	key := string(e.ParentID) + ">" + string(e.ChildID)
	for _, t := range []*time.Time{e.Effectivity.From, e.Effectivity.To} {
		key += "|"
		if t != nil {
			key += t.UTC().Format(time.RFC3339)
		}
	}
	return key
}
