package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/costing/pkg/application/dto"
	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
	"github.com/vsinha/costing/pkg/domain/services"
)

// Issuer applies FIFO issues against repositories of an open transaction
type Issuer struct {
	repos repositories.Repositories
	newID func() string
}

// NewIssuer binds an issuer to a unit of work
func NewIssuer(repos repositories.Repositories, newID func() string) *Issuer {
	return &Issuer{repos: repos, newID: newID}
}

// Issue draws quantity of item from its active lots oldest-first and writes one
// ISSUE transaction per lot touched. Nothing is written when the lots cannot
// cover the quantity and allowNegative is off.
func (i *Issuer) Issue(ctx context.Context, item *entities.Item, quantity decimal.Decimal, allowNegative bool, reference string, at time.Time) (*dto.IssueResult, error) {
	result := &dto.IssueResult{
		ItemID:       item.ID,
		Issues:       []services.LotIssue{},
		Transactions: []*entities.LedgerTransaction{},
		Quantity:     decimal.Zero,
		TotalCost:    decimal.Zero,
		Override:     allowNegative,
	}

	lots, err := i.repos.Lots.ListLotsByItem(ctx, item.ID, repositories.LotFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	issues, err := services.FIFOIssue(lots, quantity, allowNegative)
	if err != nil {
		var short *entities.InsufficientStockError
		if errors.As(err, &short) {
			short.SKU = item.SKU
		}
		return nil, err
	}

	for _, issue := range issues {
		lot, err := i.repos.Lots.GetLotForUpdate(ctx, issue.LotID)
		if err != nil {
			return nil, err
		}
		lot.Quantity = entities.RoundQuantity(lot.Quantity.Sub(issue.Quantity))
		if err := i.repos.Lots.UpdateLot(ctx, lot); err != nil {
			return nil, err
		}

		tx, err := entities.NewLedgerTransaction(entities.TransactionID(i.newID()), lot.ID, entities.TransactionIssue,
			issue.Quantity.Neg(), issue.UnitCost, entities.CostSourceActual, reference, at)
		if err != nil {
			return nil, fmt.Errorf("issuing from lot %s: %w", lot.Code, err)
		}
		if err := i.repos.Ledger.AppendTransaction(ctx, tx); err != nil {
			return nil, err
		}

		result.Issues = append(result.Issues, issue)
		result.Transactions = append(result.Transactions, tx)
		result.Quantity = result.Quantity.Add(issue.Quantity)
		result.TotalCost = result.TotalCost.Add(tx.ExtendedCost.Neg())
	}
	result.TotalCost = entities.RoundMoney(result.TotalCost)
	return result, nil
}

// CheckOverride rejects a negative-stock override that carries no audit note
func CheckOverride(allowNegative bool, note string) error {
	if allowNegative && strings.TrimSpace(note) == "" {
		return &entities.InvalidOverrideError{Reason: "allowing negative stock requires an override note"}
	}
	return nil
}

// OverrideReference appends the override note to a transaction reference
func OverrideReference(reference, note string) string {
	if note == "" {
		return reference
	}
	if reference == "" {
		return "override: " + note
	}
	return fmt.Sprintf("%s (override: %s)", reference, note)
}
