package output

import (
	"fmt"
	"io"

	"github.com/vsinha/costing/pkg/application/dto"
	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/services"
	"github.com/vsinha/costing/pkg/infrastructure/repositories/csv"
)

const dateLayout = "2006-01-02"

// Cost prints a current or historical cost query
func Cost(w io.Writer, format string, r *dto.CostQueryResult) error {
	return Render(w, format, r, func(w io.Writer) error {
		fmt.Fprintf(w, "💰 %s (%s)\n", r.SKU, r.Name)
		if r.AsOf != nil {
			fmt.Fprintf(w, "  As of:       %s\n", r.AsOf.Format(dateLayout))
		}
		fmt.Fprintf(w, "  Unit cost:   %s\n", r.UnitCost.StringFixed(2))
		fmt.Fprintf(w, "  Cost source: %s\n", r.CostSource)
		if r.HasEstimate {
			fmt.Fprintf(w, "  ⚠ ESTIMATE: %s\n", r.EstimateReason)
		}
		return nil
	})
}

// Cogs prints a COGS inspection as a summary followed by the breakdown tree
func Cogs(w io.Writer, format string, r *dto.CogsResult) error {
	if format == FormatHTML {
		return CogsHTML(w, r)
	}
	return Render(w, format, r, func(w io.Writer) error {
		fmt.Fprintf(w, "📊 COGS for %s (%s)\n", r.SKU, r.Name)
		fmt.Fprintf(w, "=====================\n\n")
		fmt.Fprintf(w, "Unit cost:     %s (%s)\n", r.UnitCost.StringFixed(2), r.CostSource)
		fmt.Fprintf(w, "Material cost: %s\n", r.MaterialCost.StringFixed(2))
		fmt.Fprintf(w, "Overhead cost: %s\n", r.OverheadCost.StringFixed(2))
		if r.HasEstimate {
			fmt.Fprintf(w, "⚠️  Includes estimates: %s\n", r.EstimateReason)
		}
		fmt.Fprintln(w)
		return PrintCogsTree(w, r.Breakdown)
	})
}

// Revaluation prints the triggering record and every propagated one
func Revaluation(w io.Writer, format string, r *dto.RevaluationResult) error {
	return Render(w, format, r, func(w io.Writer) error {
		fmt.Fprintf(w, "✅ Lot %s revalued %s -> %s (delta %s)\n", r.Record.LotID,
			r.Record.OldUnitCost.StringFixed(2), r.Record.NewUnitCost.StringFixed(2), r.Record.DeltaExtendedCost.StringFixed(2))
		if len(r.Propagated) == 0 {
			return nil
		}
		fmt.Fprintf(w, "\n🔄 Propagated to %d produced lots:\n", len(r.Propagated))
		printRecords(w, r.Propagated)
		return nil
	})
}

// History prints a lot's revaluation audit trail
func History(w io.Writer, format string, records []*entities.RevaluationRecord) error {
	return Render(w, format, records, func(w io.Writer) error {
		if len(records) == 0 {
			fmt.Fprintln(w, "No revaluations recorded")
			return nil
		}
		flat := make([]entities.RevaluationRecord, 0, len(records))
		for _, r := range records {
			flat = append(flat, *r)
		}
		printRecords(w, flat)
		return nil
	})
}

func printRecords(w io.Writer, records []entities.RevaluationRecord) {
	fmt.Fprintf(w, "%-12s %-20s %-10s %-10s %-12s %-10s %s\n",
		"Date", "Lot", "Old", "New", "Delta", "Actor", "Reason")
	fmt.Fprintf(w, "%-12s %-20s %-10s %-10s %-12s %-10s %s\n",
		"------------", "--------------------", "----------", "----------", "------------", "----------", "------")
	for _, r := range records {
		fmt.Fprintf(w, "%-12s %-20s %-10s %-10s %-12s %-10s %s\n",
			r.CreatedAt.Format(dateLayout),
			r.LotID,
			r.OldUnitCost.StringFixed(2),
			r.NewUnitCost.StringFixed(2),
			r.DeltaExtendedCost.StringFixed(2),
			r.Actor,
			r.Reason)
	}
}

// Receipt prints a newly received lot
func Receipt(w io.Writer, format string, lot *entities.Lot, tx *entities.LedgerTransaction) error {
	payload := struct {
		Lot         *entities.Lot               `json:"lot"`
		Transaction *entities.LedgerTransaction `json:"transaction"`
	}{lot, tx}
	return Render(w, format, payload, func(w io.Writer) error {
		fmt.Fprintf(w, "📦 Received lot %s (%s): %s kg @ %s\n", lot.Code, lot.ID, lot.Quantity, lot.CurrentUnitCost.StringFixed(2))
		return nil
	})
}

// Transaction prints a ledger correction and, when given, the lot it left behind
func Transaction(w io.Writer, format string, lot *entities.Lot, tx *entities.LedgerTransaction) error {
	payload := struct {
		Lot         *entities.Lot               `json:"lot,omitempty"`
		Transaction *entities.LedgerTransaction `json:"transaction"`
	}{lot, tx}
	return Render(w, format, payload, func(w io.Writer) error {
		if tx == nil {
			fmt.Fprintln(w, "✅ Count matches the book quantity, nothing recorded")
		} else {
			fmt.Fprintf(w, "🧾 %s %s: %s kg @ %s = %s\n",
				tx.Type, tx.ID, tx.Quantity, tx.UnitCost.StringFixed(2), tx.ExtendedCost.StringFixed(2))
			if tx.ReversesID != "" {
				fmt.Fprintf(w, "  Reverses:  %s\n", tx.ReversesID)
			}
		}
		if lot != nil {
			printLot(w, lot)
		}
		return nil
	})
}

// Lot prints a lot's state
func Lot(w io.Writer, format string, lot *entities.Lot) error {
	return Render(w, format, lot, func(w io.Writer) error {
		printLot(w, lot)
		return nil
	})
}

func printLot(w io.Writer, lot *entities.Lot) {
	status := "active"
	if !lot.Active {
		status = "inactive"
	}
	fmt.Fprintf(w, "📦 Lot %s (%s) of %s: %s kg @ %s, %s\n",
		lot.Code, lot.ID, lot.ItemID, lot.Quantity, lot.EffectiveCost().StringFixed(2), status)
}

// Issue prints the lots a FIFO issue drew from
func Issue(w io.Writer, format string, r *dto.IssueResult) error {
	return Render(w, format, r, func(w io.Writer) error {
		fmt.Fprintf(w, "📤 Issued %s kg of %s for %s\n", r.Quantity, r.ItemID, r.TotalCost.StringFixed(2))
		printIssues(w, r.Issues)
		return nil
	})
}

func printIssues(w io.Writer, issues []services.LotIssue) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintf(w, "  %-15s %-10s %-10s %-10s\n", "Lot", "Qty", "Cost", "Remaining")
	for _, issue := range issues {
		fmt.Fprintf(w, "  %-15s %-10s %-10s %-10s\n",
			issue.LotCode, issue.Quantity, issue.UnitCost.StringFixed(2), issue.LotRemainingAfter)
	}
}

// Production prints a produced lot and what it consumed
func Production(w io.Writer, format string, r *dto.ProductionResult) error {
	return Render(w, format, r, func(w io.Writer) error {
		fmt.Fprintf(w, "🏭 Produced lot %s of %s: %s kg @ %s\n",
			r.Lot.Code, r.Lot.ItemID, r.Lot.Quantity, r.Lot.CurrentUnitCost.StringFixed(2))
		for _, consumed := range r.Consumed {
			fmt.Fprintf(w, "\n  %s: %s kg for %s\n", consumed.ItemID, consumed.Quantity, consumed.TotalCost.StringFixed(2))
			printIssues(w, consumed.Issues)
		}
		fmt.Fprintf(w, "\n🔗 %d cost dependencies recorded\n", len(r.Dependencies))
		return nil
	})
}

// Reconciliation prints lots whose ledger does not sum to their quantity
func Reconciliation(w io.Writer, format string, mismatches []dto.ReconciliationMismatch) error {
	return Render(w, format, mismatches, func(w io.Writer) error {
		if len(mismatches) == 0 {
			fmt.Fprintln(w, "✅ All lots reconcile with the ledger")
			return nil
		}
		fmt.Fprintf(w, "⚠️  %d lots do not reconcile:\n", len(mismatches))
		fmt.Fprintf(w, "%-20s %-15s %-12s %-12s\n", "Lot", "Code", "Lot Qty", "Ledger Qty")
		for _, m := range mismatches {
			fmt.Fprintf(w, "%-20s %-15s %-12s %-12s\n", m.LotID, m.LotCode, m.LotQuantity, m.LedgerQuantity)
		}
		return nil
	})
}

// Validation prints an assembly graph validation result
func Validation(w io.Writer, format string, r *services.ValidationResult) error {
	return Render(w, format, r, func(w io.Writer) error {
		if r.IsValid() {
			fmt.Fprintln(w, "✅ Assembly graph is valid")
			return nil
		}
		fmt.Fprintf(w, "❌ Assembly graph has %d problems:\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
		return nil
	})
}

// Import prints what a CSV import wrote
func Import(w io.Writer, format string, s *csv.ImportSummary) error {
	return Render(w, format, s, func(w io.Writer) error {
		fmt.Fprintf(w, "✅ Imported %d items, %d assembly edges, %d lots\n", s.Items, s.Edges, s.Lots)
		return nil
	})
}
