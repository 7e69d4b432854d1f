package costing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
)

// PropagateAll cascades a revaluation through every downstream produced lot
const PropagateAll = -1

// RevaluationRequest describes one manual lot cost correction
type RevaluationRequest struct {
	LotID       entities.LotID
	NewUnitCost decimal.Decimal
	Reason      string
	Actor       string
	Propagate   bool
	// Depth is the number of dependency hops to follow, or PropagateAll
	Depth int
	At    time.Time
}

// RevaluationEngine applies a revaluation and its propagation inside one unit of work
type RevaluationEngine struct {
	repos repositories.Repositories
	newID func() string
}

// NewRevaluationEngine binds an engine to repositories of an open transaction
func NewRevaluationEngine(repos repositories.Repositories, newID func() string) *RevaluationEngine {
	return &RevaluationEngine{repos: repos, newID: newID}
}

type hop struct {
	lot    *entities.Lot
	record *entities.RevaluationRecord
}

// Revalue updates the lot, propagates along recorded dependencies and persists
// every audit record. The first record returned is the triggering one.
func (e *RevaluationEngine) Revalue(ctx context.Context, req RevaluationRequest) ([]*entities.RevaluationRecord, error) {
	if req.NewUnitCost.IsNegative() {
		return nil, &entities.InvalidArgumentError{Field: "new unit cost", Reason: fmt.Sprintf("cannot be negative, got %s", req.NewUnitCost)}
	}

	lot, err := e.repos.Lots.GetLotForUpdate(ctx, req.LotID)
	if err != nil {
		return nil, err
	}

	root, err := e.apply(ctx, lot, req.NewUnitCost, req.Reason, req)
	if err != nil {
		return nil, err
	}
	records := []*entities.RevaluationRecord{root}

	if req.Propagate {
		propagated, err := e.propagate(ctx, hop{lot: lot, record: root}, req)
		if err != nil {
			return nil, err
		}
		records = append(records, propagated...)
	}

	for _, record := range records {
		if err := e.repos.Revaluations.CreateRecord(ctx, record); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// apply moves lot to newCost and returns its unsaved audit record
func (e *RevaluationEngine) apply(ctx context.Context, lot *entities.Lot, newCost decimal.Decimal, reason string, req RevaluationRequest) (*entities.RevaluationRecord, error) {
	oldCost := lot.EffectiveCost()
	newCost = entities.RoundMoney(newCost)

	if lot.OriginalUnitCost == nil {
		lot.OriginalUnitCost = entities.DecimalPtr(oldCost)
	}
	lot.CurrentUnitCost = entities.DecimalPtr(newCost)
	if err := e.repos.Lots.UpdateLot(ctx, lot); err != nil {
		return nil, err
	}

	return &entities.RevaluationRecord{
		ID:                entities.RevaluationID(e.newID()),
		ItemID:            lot.ItemID,
		LotID:             lot.ID,
		OldUnitCost:       oldCost,
		NewUnitCost:       newCost,
		DeltaExtendedCost: entities.RoundMoney(newCost.Sub(oldCost).Mul(lot.Quantity)),
		Reason:            reason,
		Actor:             req.Actor,
		CreatedAt:         req.At,
	}, nil
}

// propagate collects the produced lots within Depth hops of the start lot,
// then recomputes them so every lot is derived after all of its affected
// contributors. Each lot is recomputed once per revaluation.
func (e *RevaluationEngine) propagate(ctx context.Context, start hop, req RevaluationRequest) ([]*entities.RevaluationRecord, error) {
	depth := req.Depth
	if depth == 0 {
		depth = 1
	}

	// discoveredBy is the lot whose dependency row first reached each produced lot
	discoveredBy := make(map[entities.LotID]entities.LotID)
	var order []entities.LotID
	frontier := []entities.LotID{start.lot.ID}

	for level := 0; len(frontier) > 0 && (depth == PropagateAll || level < depth); level++ {
		var next []entities.LotID
		for _, lotID := range frontier {
			deps, err := e.repos.Dependencies.ListByConsumedLot(ctx, lotID)
			if err != nil {
				return nil, err
			}
			if lotID == start.lot.ID {
				start.record.PropagatedToAssemblies = len(deps) > 0
			}

			for _, producedID := range distinctProduced(deps) {
				if _, seen := discoveredBy[producedID]; seen || producedID == start.lot.ID {
					continue
				}
				discoveredBy[producedID] = lotID
				order = append(order, producedID)
				next = append(next, producedID)
			}
		}
		frontier = next
	}

	done := map[entities.LotID]hop{start.lot.ID: start}
	pending := order
	var records []*entities.RevaluationRecord
	for len(pending) > 0 {
		idx, err := e.nextReady(ctx, pending, discoveredBy, done)
		if err != nil {
			return nil, err
		}
		producedID := pending[idx]
		pending = append(pending[:idx:idx], pending[idx+1:]...)

		parent := done[discoveredBy[producedID]]
		produced, record, err := e.recompute(ctx, producedID, parent.lot, parent.record, req)
		if err != nil {
			return nil, err
		}
		done[producedID] = hop{lot: produced, record: record}
		records = append(records, record)
	}
	return records, nil
}

// nextReady returns the index of the first pending lot whose pending
// contributors have all been recomputed. A dependency cycle, which production
// cannot create, falls back to discovery order.
func (e *RevaluationEngine) nextReady(ctx context.Context, pending []entities.LotID, discoveredBy map[entities.LotID]entities.LotID, done map[entities.LotID]hop) (int, error) {
	for i, lotID := range pending {
		contributors, err := e.repos.Dependencies.ListByProducedLot(ctx, lotID)
		if err != nil {
			return 0, err
		}
		ready := true
		for _, dep := range contributors {
			_, affected := discoveredBy[dep.ConsumedLotID]
			if _, recomputed := done[dep.ConsumedLotID]; affected && !recomputed {
				ready = false
				break
			}
		}
		if ready {
			return i, nil
		}
	}
	return 0, nil
}

// recompute re-derives a produced lot's cost from every lot that contributed to
// it, over the quantity the production made. Reversed issues no longer count.
func (e *RevaluationEngine) recompute(ctx context.Context, producedID entities.LotID, source *entities.Lot, parent *entities.RevaluationRecord, req RevaluationRequest) (*entities.Lot, *entities.RevaluationRecord, error) {
	produced, err := e.repos.Lots.GetLotForUpdate(ctx, producedID)
	if err != nil {
		return nil, nil, fmt.Errorf("propagating from lot %s: %w", source.Code, err)
	}

	contributors, err := e.repos.Dependencies.ListByProducedLot(ctx, producedID)
	if err != nil {
		return nil, nil, err
	}

	total := decimal.Zero
	producedQty := decimal.Zero
	producedTxs := make(map[entities.TransactionID]bool)
	for _, dep := range contributors {
		if !producedTxs[dep.ProducedTransactionID] {
			producedTxs[dep.ProducedTransactionID] = true
			produceTx, err := e.repos.Ledger.GetTransaction(ctx, dep.ProducedTransactionID)
			if err != nil {
				return nil, nil, fmt.Errorf("propagating to lot %s: %w", produced.Code, err)
			}
			producedQty = producedQty.Add(produceTx.IssuedQuantity())
		}

		tx, err := e.repos.Ledger.GetTransaction(ctx, dep.ConsumedTransactionID)
		if err != nil {
			return nil, nil, fmt.Errorf("propagating to lot %s: %w", produced.Code, err)
		}
		reversal, err := e.repos.Ledger.FindReversal(ctx, tx.ID)
		if err != nil {
			return nil, nil, err
		}
		if reversal != nil {
			continue
		}
		consumed, err := e.repos.Lots.GetLot(ctx, tx.LotID)
		if err != nil {
			return nil, nil, fmt.Errorf("propagating to lot %s: %w", produced.Code, err)
		}
		total = total.Add(tx.IssuedQuantity().Mul(consumed.EffectiveCost()))
	}

	newCost := decimal.Zero
	if producedQty.IsPositive() {
		newCost = total.Div(producedQty)
	}

	reason := fmt.Sprintf("Propagated from lot %s: %s", source.Code, req.Reason)
	record, err := e.apply(ctx, produced, newCost, reason, req)
	if err != nil {
		return nil, nil, err
	}
	record.PropagatedToAssemblies = true
	record.ParentID = parent.ID
	return produced, record, nil
}

func distinctProduced(deps []*entities.AssemblyCostDependency) []entities.LotID {
	seen := make(map[entities.LotID]bool, len(deps))
	ids := make([]entities.LotID, 0, len(deps))
	for _, dep := range deps {
		if !seen[dep.ProducedLotID] {
			seen[dep.ProducedLotID] = true
			ids = append(ids, dep.ProducedLotID)
		}
	}
	return ids
}
