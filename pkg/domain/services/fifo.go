package services

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/vsinha/costing/pkg/domain/entities"
)

// LotIssue is one instruction produced by a FIFO issue
type LotIssue struct {
	LotID             entities.LotID
	LotCode           string
	Quantity          decimal.Decimal
	UnitCost          decimal.Decimal
	LotRemainingAfter decimal.Decimal
}

// FIFOIssue computes which lots to draw from, oldest first, to satisfy required.
// It is pure: lots are not modified and nothing is returned on failure.
//
// Without allowNegative, lots with non-positive quantity are skipped and an unmet
// requirement fails with InsufficientStockError. With allowNegative, negative lots
// yield up to their absolute quantity and any remainder is charged to the newest lot.
func FIFOIssue(lots []*entities.Lot, required decimal.Decimal, allowNegative bool) ([]LotIssue, error) {
	issues := []LotIssue{}
	required = entities.RoundQuantity(required)
	if !required.IsPositive() {
		return issues, nil
	}

	ordered := make([]*entities.Lot, len(lots))
	copy(ordered, lots)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ReceivedAt.Before(ordered[j].ReceivedAt)
	})

	remaining := required
	for _, lot := range ordered {
		if !remaining.IsPositive() {
			break
		}

		available := lot.Quantity
		if !available.IsPositive() {
			if !allowNegative {
				continue
			}
			available = available.Abs()
		}
		if available.IsZero() {
			continue
		}

		take := decimal.Min(remaining, available)
		cost, _ := lot.AuthoritativeCost()
		issues = append(issues, LotIssue{
			LotID:             lot.ID,
			LotCode:           lot.Code,
			Quantity:          take,
			UnitCost:          cost,
			LotRemainingAfter: entities.RoundQuantity(lot.Quantity.Sub(take)),
		})
		remaining = remaining.Sub(take)
	}

	if !remaining.IsPositive() {
		return issues, nil
	}

	if !allowNegative || len(ordered) == 0 {
		return nil, &entities.InsufficientStockError{
			Requested: required,
			Available: required.Sub(remaining),
			Shortfall: remaining,
		}
	}

	newest := ordered[len(ordered)-1]
	for i := range issues {
		if issues[i].LotID == newest.ID {
			issues[i].Quantity = issues[i].Quantity.Add(remaining)
			issues[i].LotRemainingAfter = issues[i].LotRemainingAfter.Sub(remaining)
			return issues, nil
		}
	}
	cost, _ := newest.AuthoritativeCost()
	issues = append(issues, LotIssue{
		LotID:             newest.ID,
		LotCode:           newest.Code,
		Quantity:          remaining,
		UnitCost:          cost,
		LotRemainingAfter: entities.RoundQuantity(newest.Quantity.Sub(remaining)),
	})
	return issues, nil
}

// TotalIssued sums the quantities of a set of issues
func TotalIssued(issues []LotIssue) decimal.Decimal {
	total := decimal.Zero
	for _, issue := range issues {
		total = total.Add(issue.Quantity)
	}
	return total
}
