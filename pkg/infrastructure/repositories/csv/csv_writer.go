package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/costing/pkg/domain/services"
)

// WriteDir writes data as items.csv, assembly.csv and lots.csv in dir, in the
// layout LoadDir reads. Lot rows are written in kilograms.
func WriteDir(dir string, data *Dataset) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	items := make([][]string, 0, len(data.Items))
	for _, item := range data.Items {
		items = append(items, []string{
			string(item.ID), item.SKU, item.Name,
			strconv.FormatBool(item.Purchasable), strconv.FormatBool(item.Sellable),
			strconv.FormatBool(item.Assemblable), strconv.FormatBool(item.Tracked),
			formatOptionalDecimal(item.StandardCost), formatOptionalDecimal(item.EstimatedCost),
			item.EstimateReason,
		})
	}

	edges := make([][]string, 0, len(data.Edges))
	for _, e := range data.Edges {
		edges = append(edges, []string{
			string(e.ParentID), string(e.ChildID), e.Ratio.String(),
			e.LossFactor.String(), e.YieldFactor.String(),
			formatOptionalDate(e.Effectivity.From), formatOptionalDate(e.Effectivity.To),
			strconv.FormatBool(e.IsEnergyOrOverhead),
		})
	}

	lots := make([][]string, 0, len(data.Lots))
	for _, lot := range data.Lots {
		lots = append(lots, []string{
			string(lot.ItemID), lot.Code, lot.Quantity.String(), services.CanonicalUnit, "",
			lot.UnitCost.String(), lot.ReceivedAt.Format(dateLayout),
		})
	}

	files := []struct {
		name    string
		header  []string
		records [][]string
	}{
		{ItemsFile, itemsHeader, items},
		{AssemblyFile, assemblyHeader, edges},
		{LotsFile, lotsHeader, lots},
	}
	for _, f := range files {
		if err := writeFile(filepath.Join(dir, f.name), f.header, f.records); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, header []string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

func formatOptionalDecimal(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
