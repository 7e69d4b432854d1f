package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vsinha/costing/pkg/application/dto"
	"github.com/vsinha/costing/pkg/infrastructure/repositories/csv"
)

const widgetItems = `item_id,sku,name,purchasable,sellable,assemblable,tracked,standard_cost,estimated_cost,estimate_reason
WIDGET,WID-1,Widget,false,true,true,true,,,
STEEL,STL-1,Steel,true,false,false,true,,,
ENERGY,NRG-1,Press energy,false,false,false,false,0.50,,
`

const widgetAssembly = `parent_id,child_id,ratio,loss_factor,yield_factor,effective_from,effective_to,is_overhead
WIDGET,STEEL,2,,,,,false
WIDGET,ENERGY,4,,,,,true
`

const widgetLots = `item_id,lot_code,quantity,unit,density_kg_per_l,unit_cost,received_date
STEEL,S-001,100,kg,,10.00,2024-01-05
`

// cli runs commands against one database file
type cli struct {
	t  *testing.T
	db string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("REDIS_ADDRESS", "")
	t.Setenv("COSTING_LOG_LEVEL", "error")
	return &cli{t: t, db: filepath.Join(t.TempDir(), "costing.db")}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	err := Run(context.Background(), append([]string{"-db", c.db}, args...), &stdout, &stderr)
	return stdout.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("costing %s failed: %v", strings.Join(args, " "), err)
	}
	return out
}

func writeScenario(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		csv.ItemsFile:    widgetItems,
		csv.AssemblyFile: widgetAssembly,
		csv.LotsFile:     widgetLots,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return dir
}

func TestRun_CostingWorkflow(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("load", "-dir", writeScenario(t))
	if !strings.Contains(out, "Imported 3 items, 2 assembly edges, 1 lots") {
		t.Errorf("Unexpected load output: %q", out)
	}

	var cogs dto.CogsResult
	if err := json.Unmarshal([]byte(c.mustRun("-format", "json", "inspect", "-item", "WIDGET")), &cogs); err != nil {
		t.Fatalf("Failed to decode inspect output: %v", err)
	}
	if !cogs.UnitCost.Equal(decimal.RequireFromString("22")) {
		t.Errorf("Expected WIDGET COGS 22.00, got %s", cogs.UnitCost)
	}
	if !cogs.OverheadCost.Equal(decimal.RequireFromString("2")) {
		t.Errorf("Expected overhead 2.00, got %s", cogs.OverheadCost)
	}

	out = c.mustRun("revalue", "-item", "STL-1", "-lot", "S-001", "-cost", "12", "-reason", "supplier credit")
	if !strings.Contains(out, "10.00 -> 12.00 (delta 200.00)") {
		t.Errorf("Unexpected revalue output: %q", out)
	}

	var cost dto.CostQueryResult
	if err := json.Unmarshal([]byte(c.mustRun("-format", "json", "cost", "-item", "STEEL")), &cost); err != nil {
		t.Fatalf("Failed to decode cost output: %v", err)
	}
	if !cost.UnitCost.Equal(decimal.RequireFromString("12")) {
		t.Errorf("Expected STEEL at 12 after revaluation, got %s", cost.UnitCost)
	}

	out = c.mustRun("history", "-item", "STEEL", "-as-of", "2024-06-30")
	if !strings.Contains(out, "As of:       2024-06-30") || !strings.Contains(out, "12.00") {
		t.Errorf("Unexpected history output: %q", out)
	}
	if _, err := c.run("history", "-item", "STEEL", "-as-of", "2024-01-04"); err == nil {
		t.Error("Expected no cost before the first receipt")
	}

	out = c.mustRun("audit", "-item", "STEEL", "-lot", "S-001")
	if !strings.Contains(out, "supplier credit") {
		t.Errorf("Expected audit trail to carry the reason, got %q", out)
	}

	out = c.mustRun("receive", "-item", "STEEL", "-code", "S-002", "-qty", "500", "-unit", "g", "-cost", "0.02")
	if !strings.Contains(out, "0.5 kg @ 20.00") {
		t.Errorf("Expected grams converted to 0.5 kg @ 20.00, got %q", out)
	}

	var issued dto.IssueResult
	if err := json.Unmarshal([]byte(c.mustRun("-format", "json", "issue", "-item", "STEEL", "-qty", "100.2")), &issued); err != nil {
		t.Fatalf("Failed to decode issue output: %v", err)
	}
	if len(issued.Issues) != 2 || issued.Issues[0].LotCode != "S-001" {
		t.Errorf("Expected FIFO draw from S-001 then S-002, got %+v", issued.Issues)
	}
	// 100 @ 12 + 0.2 @ 20
	if !issued.TotalCost.Equal(decimal.RequireFromString("1204")) {
		t.Errorf("Expected total cost 1204, got %s", issued.TotalCost)
	}

	if _, err := c.run("issue", "-item", "STEEL", "-qty", "5"); err == nil {
		t.Error("Expected an issue beyond stock to fail")
	}

	out = c.mustRun("reconcile")
	if !strings.Contains(out, "All lots reconcile") {
		t.Errorf("Expected clean reconciliation, got %q", out)
	}
}

func TestRun_ProduceAndPropagate(t *testing.T) {
	c := newCLI(t)
	c.mustRun("load", "-dir", writeScenario(t))

	var produced dto.ProductionResult
	out := c.mustRun("-format", "json", "produce", "-item", "WIDGET", "-code", "W-001", "-qty", "5", "-input", "STEEL=10")
	if err := json.Unmarshal([]byte(out), &produced); err != nil {
		t.Fatalf("Failed to decode produce output: %v", err)
	}
	// 10 kg @ 10 over 5 units
	if produced.Lot == nil || !produced.Lot.CurrentUnitCost.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("Expected W-001 at 20, got %+v", produced.Lot)
	}

	out = c.mustRun("revalue", "-item", "STEEL", "-lot", "S-001", "-cost", "11", "-reason", "freight")
	if !strings.Contains(out, "Propagated to 1 produced lots") {
		t.Errorf("Expected propagation to W-001, got %q", out)
	}

	out = c.mustRun("audit", "-item", "WIDGET", "-lot", "W-001")
	if !strings.Contains(out, "22.00") {
		t.Errorf("Expected W-001 revalued to 22.00, got %q", out)
	}
}

func TestRun_GenerateThenValidateAndLoad(t *testing.T) {
	c := newCLI(t)
	dir := filepath.Join(t.TempDir(), "scenario")

	out := c.mustRun("generate", "-items", "40", "-max-depth", "4", "-seed", "7", "-output", dir)
	if !strings.Contains(out, "Generated") {
		t.Errorf("Unexpected generate output: %q", out)
	}
	out = c.mustRun("validate", "-dir", dir)
	if !strings.Contains(out, "Assembly graph is valid") {
		t.Errorf("Expected generated graph to validate, got %q", out)
	}
	c.mustRun("load", "-dir", dir)
	c.mustRun("inspect", "-item", "FG_001")
}

func TestRun_Errors(t *testing.T) {
	c := newCLI(t)

	if _, err := c.run("frobnicate"); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("Expected unknown command error, got %v", err)
	}
	if _, err := c.run("cost", "-item", "NOPE"); err == nil {
		t.Error("Expected missing item to fail")
	}
	if _, err := c.run("adjust", "-lot", "X"); err == nil {
		t.Error("Expected adjust without -delta or -count to fail")
	}
	if _, err := c.run("produce", "-item", "X", "-qty", "1", "-input", "STEEL"); err == nil {
		t.Error("Expected malformed -input to fail")
	}
	out, err := c.run("help")
	if err != nil || !strings.Contains(out, "revalue") {
		t.Errorf("Expected help to list commands, got %q (%v)", out, err)
	}
}
