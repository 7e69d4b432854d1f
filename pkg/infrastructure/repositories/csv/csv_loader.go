package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/services"
)

const (
	ItemsFile    = "items.csv"
	AssemblyFile = "assembly.csv"
	LotsFile     = "lots.csv"

	dateLayout = "2006-01-02"
)

var (
	itemsHeader    = []string{"item_id", "sku", "name", "purchasable", "sellable", "assemblable", "tracked", "standard_cost", "estimated_cost", "estimate_reason"}
	assemblyHeader = []string{"parent_id", "child_id", "ratio", "loss_factor", "yield_factor", "effective_from", "effective_to", "is_overhead"}
	lotsHeader     = []string{"item_id", "lot_code", "quantity", "unit", "density_kg_per_l", "unit_cost", "received_date"}
)

// LotRow is an opening lot balance normalized to kilograms
type LotRow struct {
	ItemID     entities.ItemID
	Code       string
	Quantity   decimal.Decimal
	UnitCost   decimal.Decimal
	ReceivedAt time.Time
}

// Dataset is everything read from one import directory
type Dataset struct {
	Items []*entities.Item
	Edges []*entities.AssemblyEdge
	Lots  []LotRow
}

// Loader handles loading costing master data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadDir reads items.csv, assembly.csv and, when present, lots.csv from dir
func (l *Loader) LoadDir(dir string) (*Dataset, error) {
	items, err := l.LoadItems(filepath.Join(dir, ItemsFile))
	if err != nil {
		return nil, err
	}
	edges, err := l.LoadAssembly(filepath.Join(dir, AssemblyFile))
	if err != nil {
		return nil, err
	}

	data := &Dataset{Items: items, Edges: edges}
	lots, err := l.LoadLots(filepath.Join(dir, LotsFile))
	switch {
	case err == nil:
		data.Lots = lots
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}
	return data, nil
}

// LoadItems loads items from a CSV file
func (l *Loader) LoadItems(filename string) ([]*entities.Item, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open items file %s: %w", filename, err)
	}
	defer file.Close()
	return l.ReadItems(file)
}

// ReadItems parses items from r
func (l *Loader) ReadItems(r io.Reader) ([]*entities.Item, error) {
	var items []*entities.Item
	err := readRecords(r, "items", itemsHeader, func(record []string) error {
		item, err := parseItem(record)
		if err != nil {
			return err
		}
		items = append(items, item)
		return nil
	})
	return items, err
}

// LoadAssembly loads assembly edges from a CSV file
func (l *Loader) LoadAssembly(filename string) ([]*entities.AssemblyEdge, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open assembly file %s: %w", filename, err)
	}
	defer file.Close()
	return l.ReadAssembly(file)
}

// ReadAssembly parses assembly edges from r
func (l *Loader) ReadAssembly(r io.Reader) ([]*entities.AssemblyEdge, error) {
	var edges []*entities.AssemblyEdge
	err := readRecords(r, "assembly", assemblyHeader, func(record []string) error {
		edge, err := parseEdge(record)
		if err != nil {
			return err
		}
		edges = append(edges, edge)
		return nil
	})
	return edges, err
}

// LoadLots loads opening lot balances from a CSV file
func (l *Loader) LoadLots(filename string) ([]LotRow, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open lots file %s: %w", filename, err)
	}
	defer file.Close()
	return l.ReadLots(file)
}

// ReadLots parses lot balances from r, converting quantities to kilograms
func (l *Loader) ReadLots(r io.Reader) ([]LotRow, error) {
	var lots []LotRow
	err := readRecords(r, "lots", lotsHeader, func(record []string) error {
		lot, err := parseLot(record)
		if err != nil {
			return err
		}
		lots = append(lots, lot)
		return nil
	})
	return lots, err
}

func readRecords(r io.Reader, kind string, expectedHeader []string, row func([]string) error) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 2 {
		return fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}

	if !validateHeader(records[0], expectedHeader) {
		return fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, records[0])
	}

	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return fmt.Errorf("%s CSV row %d: expected %d columns, got %d", kind, i+2, len(expectedHeader), len(record))
		}
		if err := row(record); err != nil {
			return fmt.Errorf("%s CSV row %d: %w", kind, i+2, err)
		}
	}
	return nil
}

// Helper functions for parsing CSV records

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseItem(record []string) (*entities.Item, error) {
	item, err := entities.NewItem(entities.ItemID(record[0]), record[1], record[2])
	if err != nil {
		return nil, err
	}

	flags := []*bool{&item.Purchasable, &item.Sellable, &item.Assemblable, &item.Tracked}
	for i, flag := range flags {
		if *flag, err = parseBool(record[3+i], itemsHeader[3+i]); err != nil {
			return nil, err
		}
	}

	if item.StandardCost, err = parseOptionalDecimal(record[7], "standard_cost"); err != nil {
		return nil, err
	}
	if item.EstimatedCost, err = parseOptionalDecimal(record[8], "estimated_cost"); err != nil {
		return nil, err
	}
	item.EstimateReason = record[9]

	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

func parseEdge(record []string) (*entities.AssemblyEdge, error) {
	ratio, err := parseDecimal(record[2], "ratio")
	if err != nil {
		return nil, err
	}
	loss, err := parseDecimalOrZero(record[3], "loss_factor")
	if err != nil {
		return nil, err
	}
	yield, err := parseDecimalOrZero(record[4], "yield_factor")
	if err != nil {
		return nil, err
	}

	var window entities.EffectiveWindow
	if window.From, err = parseOptionalDate(record[5], "effective_from"); err != nil {
		return nil, err
	}
	if window.To, err = parseOptionalDate(record[6], "effective_to"); err != nil {
		return nil, err
	}

	edge, err := entities.NewAssemblyEdge(entities.ItemID(record[0]), entities.ItemID(record[1]), ratio, loss, yield, window)
	if err != nil {
		return nil, err
	}
	if edge.IsEnergyOrOverhead, err = parseBool(record[7], "is_overhead"); err != nil {
		return nil, err
	}
	return edge, nil
}

func parseLot(record []string) (LotRow, error) {
	quantity, err := parseDecimal(record[2], "quantity")
	if err != nil {
		return LotRow{}, err
	}
	density, err := parseOptionalDecimal(record[4], "density_kg_per_l")
	if err != nil {
		return LotRow{}, err
	}
	unitCost, err := parseDecimal(record[5], "unit_cost")
	if err != nil {
		return LotRow{}, err
	}
	receivedAt, err := time.Parse(dateLayout, strings.TrimSpace(record[6]))
	if err != nil {
		return LotRow{}, fmt.Errorf("invalid received_date format: %s (expected YYYY-MM-DD)", record[6])
	}

	// unit_cost is per the unit the row is expressed in
	kg, costPerKg, err := services.ToCanonical(quantity, unitCost, strings.TrimSpace(record[3]), density)
	if err != nil {
		return LotRow{}, err
	}

	return LotRow{
		ItemID:     entities.ItemID(record[0]),
		Code:       record[1],
		Quantity:   kg,
		UnitCost:   costPerKg,
		ReceivedAt: receivedAt,
	}, nil
}

func parseBool(s, field string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(strings.ToLower(s))
	if err != nil {
		return false, fmt.Errorf("invalid %s: %s (expected true or false)", field, s)
	}
	return b, nil
}

func parseDecimal(s, field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", field, s)
	}
	return d, nil
}

func parseDecimalOrZero(s, field string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return parseDecimal(s, field)
}

func parseOptionalDecimal(s, field string) (*decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := parseDecimal(s, field)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseOptionalDate(s, field string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s format: %s (expected YYYY-MM-DD)", field, s)
	}
	return &t, nil
}
