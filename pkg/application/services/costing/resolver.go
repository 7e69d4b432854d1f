package costing

import (
	"context"
	"time"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
)

// ResolveOptions selects the lots and authorities a resolution may use
type ResolveOptions struct {
	// AsOf restricts ACTUAL to lots received on or before it. Nil means current.
	AsOf *time.Time
	// IncludeEstimates enables the ESTIMATED tier
	IncludeEstimates bool
}

// CostResolver applies the ACTUAL, STANDARD, ESTIMATED precedence to one item
type CostResolver struct {
	lots repositories.LotRepository
}

func NewCostResolver(lots repositories.LotRepository) *CostResolver {
	return &CostResolver{lots: lots}
}

// Resolve returns the first cost authority that matches for item
func (r *CostResolver) Resolve(ctx context.Context, item *entities.Item, opts ResolveOptions) (entities.CostResult, error) {
	filter := repositories.LotFilter{ActiveOnly: true}
	if opts.AsOf != nil {
		// historical eligibility is by receipt date, whatever the lot's state today
		filter = repositories.LotFilter{ReceivedOnOrBefore: opts.AsOf}
	}

	lots, err := r.lots.ListLotsByItem(ctx, item.ID, filter)
	if err != nil {
		return entities.CostResult{}, err
	}

	// lots come oldest first; the newest usable receipt wins
	for i := len(lots) - 1; i >= 0; i-- {
		if cost, ok := lots[i].AuthoritativeCost(); ok {
			return entities.CostResult{
				UnitCost: entities.RoundMoney(cost),
				Source:   entities.CostSourceActual,
			}, nil
		}
	}

	if item.StandardCost != nil {
		return entities.CostResult{
			UnitCost: entities.RoundMoney(*item.StandardCost),
			Source:   entities.CostSourceStandard,
		}, nil
	}

	if opts.IncludeEstimates && item.EstimatedCost != nil {
		return entities.CostResult{
			UnitCost:       entities.RoundMoney(*item.EstimatedCost),
			Source:         entities.CostSourceEstimated,
			HasEstimate:    true,
			EstimateReason: item.EstimateReason,
		}, nil
	}

	return entities.CostResult{}, &entities.NoCostAvailableError{SKU: item.SKU}
}
