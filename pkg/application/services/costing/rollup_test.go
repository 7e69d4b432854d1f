package costing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vsinha/costing/pkg/domain/entities"
	fixtures "github.com/vsinha/costing/pkg/infrastructure/testing"
)

func buildTree(t *testing.T, seed *fixtures.Seeder, root string, opts RollupOptions) (*entities.CostNode, error) {
	t.Helper()
	return NewRollupEngine(seed.Repos).BuildCostTree(context.Background(), entities.ItemID(root), opts)
}

func TestBuildCostTree_Additivity(t *testing.T) {
	_, seed := fixtures.NewSeeder()
	seed.Items(fixtures.MustItem("MIX", true), fixtures.MustItem("A", false), fixtures.MustItem("B", false))
	seed.Edges(fixtures.MustEdge("MIX", "A", "0.7", "0.02"), fixtures.MustEdge("MIX", "B", "0.3", "0.02"))
	seed.Lot("A", "A1", "100", "10", fixtures.Day(0))
	seed.Lot("B", "B1", "100", "10", fixtures.Day(0))

	tree, err := buildTree(t, seed, "MIX", RollupOptions{IncludeEstimates: true})
	if err != nil {
		t.Fatalf("Failed to build cost tree: %v", err)
	}

	if !tree.UnitCost.Equal(fixtures.Dec("10.20")) {
		t.Errorf("Expected unit cost 10.20, got %s", tree.UnitCost)
	}
	if !tree.ExtendedCost.Equal(fixtures.Dec("10.20")) || !tree.QuantityPerParent.Equal(fixtures.Dec("1")) {
		t.Errorf("Expected root extended 10.20 per 1 unit, got %s per %s", tree.ExtendedCost, tree.QuantityPerParent)
	}
	if tree.CostSource != entities.CostSourceActual || tree.HasEstimate {
		t.Errorf("Expected ACTUAL without estimate, got %s estimate=%v", tree.CostSource, tree.HasEstimate)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("Expected 2 children, got %d", len(tree.Children))
	}

	a := tree.Children[0]
	if a.Level != 1 || !a.QuantityPerParent.Equal(fixtures.Dec("0.714")) || !a.ExtendedCost.Equal(fixtures.Dec("7.14")) {
		t.Errorf("Expected A at level 1 with 0.714 -> 7.14, got level %d %s -> %s", a.Level, a.QuantityPerParent, a.ExtendedCost)
	}
	b := tree.Children[1]
	if !b.QuantityPerParent.Equal(fixtures.Dec("0.306")) || !b.ExtendedCost.Equal(fixtures.Dec("3.06")) {
		t.Errorf("Expected B 0.306 -> 3.06, got %s -> %s", b.QuantityPerParent, b.ExtendedCost)
	}
}

func TestBuildCostTree_YieldDividesRequirement(t *testing.T) {
	_, seed := fixtures.NewSeeder()
	seed.Items(fixtures.MustItem("BAR", true), fixtures.MustItem("STEEL", false))
	edge := fixtures.MustEdge("BAR", "STEEL", "1", "0")
	edge.YieldFactor = fixtures.Dec("0.8")
	seed.Edges(edge)
	seed.Lot("STEEL", "S1", "10", "4", fixtures.Day(0))

	tree, err := buildTree(t, seed, "BAR", RollupOptions{})
	if err != nil {
		t.Fatalf("Failed to build cost tree: %v", err)
	}
	if !tree.Children[0].QuantityPerParent.Equal(fixtures.Dec("1.25")) {
		t.Errorf("Expected 1.25 kg steel per bar, got %s", tree.Children[0].QuantityPerParent)
	}
	if !tree.UnitCost.Equal(fixtures.Dec("5")) {
		t.Errorf("Expected bar cost 5.00, got %s", tree.UnitCost)
	}
}

func TestBuildCostTree_CycleDetected(t *testing.T) {
	_, seed := fixtures.NewSeeder()
	seed.Items(fixtures.MustItem("X", true), fixtures.MustItem("Y", true), fixtures.MustItem("Z", true))
	seed.Edges(
		fixtures.MustEdge("X", "Y", "1", "0"),
		fixtures.MustEdge("Y", "Z", "1", "0"),
		fixtures.MustEdge("Z", "X", "1", "0"),
	)

	_, err := buildTree(t, seed, "X", RollupOptions{IncludeEstimates: true})
	if !errors.Is(err, entities.ErrCircularBOM) {
		t.Fatalf("Expected ErrCircularBOM, got %v", err)
	}

	var cycle *entities.CircularBOMError
	if !errors.As(err, &cycle) {
		t.Fatalf("Expected *CircularBOMError, got %T", err)
	}
	if got := strings.Join(cycle.Path, " -> "); got != "X -> Y -> Z -> X" {
		t.Errorf("Expected path X -> Y -> Z -> X, got %s", got)
	}
}

func TestBuildCostTree_DiamondIsNotACycle(t *testing.T) {
	_, seed := fixtures.NewSeeder()
	seed.Items(
		fixtures.MustItem("TOP", true),
		fixtures.MustItem("LEFT", true),
		fixtures.MustItem("RIGHT", true),
		fixtures.MustItem("SHARED", false),
	)
	seed.Edges(
		fixtures.MustEdge("TOP", "LEFT", "1", "0"),
		fixtures.MustEdge("TOP", "RIGHT", "1", "0"),
		fixtures.MustEdge("LEFT", "SHARED", "2", "0"),
		fixtures.MustEdge("RIGHT", "SHARED", "3", "0"),
	)
	seed.Lot("SHARED", "S1", "100", "1.50", fixtures.Day(0))

	tree, err := buildTree(t, seed, "TOP", RollupOptions{})
	if err != nil {
		t.Fatalf("Expected diamond to resolve, got %v", err)
	}
	if !tree.UnitCost.Equal(fixtures.Dec("7.50")) {
		t.Errorf("Expected 2×1.50 + 3×1.50 = 7.50, got %s", tree.UnitCost)
	}
}

func TestBuildCostTree_DepthBound(t *testing.T) {
	_, seed := fixtures.NewSeeder()
	seed.Items(fixtures.MustItem("L0", true), fixtures.MustItem("L1", true), fixtures.MustItem("L2", false))
	seed.Edges(fixtures.MustEdge("L0", "L1", "1", "0"), fixtures.MustEdge("L1", "L2", "1", "0"))
	seed.Lot("L2", "C1", "1", "3", fixtures.Day(0))

	_, err := buildTree(t, seed, "L0", RollupOptions{MaxDepth: 1})
	if !errors.Is(err, entities.ErrBOMDepthExceeded) {
		t.Fatalf("Expected ErrBOMDepthExceeded with depth 1, got %v", err)
	}

	tree, err := buildTree(t, seed, "L0", RollupOptions{MaxDepth: 2})
	if err != nil {
		t.Fatalf("Expected depth 2 to suffice, got %v", err)
	}
	if !tree.UnitCost.Equal(fixtures.Dec("3")) {
		t.Errorf("Expected 3.00, got %s", tree.UnitCost)
	}
}

func TestBuildCostTree_EstimateSurfacesToRoot(t *testing.T) {
	_, seed := fixtures.BuildPaintScenario()

	tree, err := buildTree(t, seed, "PAINT", RollupOptions{IncludeEstimates: true})
	if err != nil {
		t.Fatalf("Failed to build cost tree: %v", err)
	}

	if !tree.UnitCost.Equal(fixtures.Dec("10.04")) {
		t.Errorf("Expected PAINT 6.78 + 3.06 + 0.20 = 10.04, got %s", tree.UnitCost)
	}
	if tree.CostSource != entities.CostSourceEstimated || !tree.HasEstimate {
		t.Errorf("Expected root ESTIMATED, got %s estimate=%v", tree.CostSource, tree.HasEstimate)
	}
	if !strings.Contains(tree.EstimateReason, "SOLVENT: awaiting supplier quote") {
		t.Errorf("Expected root reason to name SOLVENT, got %q", tree.EstimateReason)
	}

	base := tree.Children[0]
	if !base.HasEstimate || base.EstimateReason != "SOLVENT: awaiting supplier quote" {
		t.Errorf("Expected BASE to carry the solvent estimate, got %v %q", base.HasEstimate, base.EstimateReason)
	}
	if !base.UnitCost.Equal(fixtures.Dec("9.50")) {
		t.Errorf("Expected BASE 9.00 + 0.50 = 9.50, got %s", base.UnitCost)
	}

	pigment := tree.Children[1]
	if pigment.CostSource != entities.CostSourceStandard || pigment.HasEstimate {
		t.Errorf("Expected PIGMENT STANDARD, got %s", pigment.CostSource)
	}

	energy := tree.Children[2]
	if !energy.IsOverhead || !energy.ExtendedCost.Equal(fixtures.Dec("0.20")) {
		t.Errorf("Expected ENERGY overhead 0.20, got overhead=%v %s", energy.IsOverhead, energy.ExtendedCost)
	}

	resin := base.Children[0]
	if resin.Level != 2 || resin.CostSource != entities.CostSourceActual {
		t.Errorf("Expected RESIN ACTUAL at level 2, got %s at %d", resin.CostSource, resin.Level)
	}
}

func TestBuildCostTree_ExcludingEstimatesFails(t *testing.T) {
	_, seed := fixtures.BuildPaintScenario()

	_, err := buildTree(t, seed, "PAINT", RollupOptions{IncludeEstimates: false})
	if !errors.Is(err, entities.ErrNoCostAvailable) {
		t.Fatalf("Expected ErrNoCostAvailable, got %v", err)
	}
	var missing *entities.NoCostAvailableError
	if errors.As(err, &missing) && missing.SKU != "SOLVENT" {
		t.Errorf("Expected SOLVENT to be reported, got %s", missing.SKU)
	}
}

func TestBuildCostTree_StandardMixIsStandard(t *testing.T) {
	_, seed := fixtures.NewSeeder()
	std := fixtures.MustItem("STD", false)
	std.StandardCost = fixtures.DecPtr("4")
	seed.Items(fixtures.MustItem("KIT", true), fixtures.MustItem("ACT", false), std)
	seed.Edges(fixtures.MustEdge("KIT", "ACT", "1", "0"), fixtures.MustEdge("KIT", "STD", "1", "0"))
	seed.Lot("ACT", "A1", "5", "6", fixtures.Day(0))

	tree, err := buildTree(t, seed, "KIT", RollupOptions{})
	if err != nil {
		t.Fatalf("Failed to build cost tree: %v", err)
	}
	if tree.CostSource != entities.CostSourceStandard || tree.HasEstimate {
		t.Errorf("Expected STANDARD without estimate, got %s", tree.CostSource)
	}
}

func TestBuildCostTree_EffectivityWindow(t *testing.T) {
	_, seed := fixtures.NewSeeder()
	seed.Items(fixtures.MustItem("ASM", true), fixtures.MustItem("OLD", false), fixtures.MustItem("NEW", false))

	cutover := fixtures.Day(30)
	beforeCutover := cutover.Add(-time.Second)
	old := fixtures.MustEdge("ASM", "OLD", "1", "0")
	old.Effectivity = entities.EffectiveWindow{To: &beforeCutover}
	replacement := fixtures.MustEdge("ASM", "NEW", "1", "0")
	replacement.Effectivity = entities.EffectiveWindow{From: &cutover}
	retired := fixtures.MustEdge("ASM", "NEW", "5", "0")
	retired.Active = false
	seed.Edges(old, replacement, retired)

	seed.Lot("OLD", "O1", "10", "2", fixtures.Day(0))
	seed.Lot("NEW", "N1", "10", "3", fixtures.Day(0))

	early := fixtures.Day(10)
	tree, err := buildTree(t, seed, "ASM", RollupOptions{AsOf: &early})
	if err != nil {
		t.Fatalf("Failed to build cost tree: %v", err)
	}
	if len(tree.Children) != 1 || tree.Children[0].SKU != "OLD" {
		t.Fatalf("Expected only OLD before cutover, got %d children", len(tree.Children))
	}

	late := fixtures.Day(40)
	tree, err = buildTree(t, seed, "ASM", RollupOptions{AsOf: &late})
	if err != nil {
		t.Fatalf("Failed to build cost tree: %v", err)
	}
	if len(tree.Children) != 1 || tree.Children[0].SKU != "NEW" || !tree.UnitCost.Equal(fixtures.Dec("3")) {
		t.Fatalf("Expected only NEW at 3.00 after cutover, got %d children cost %s", len(tree.Children), tree.UnitCost)
	}

	tree, err = buildTree(t, seed, "ASM", RollupOptions{})
	if err != nil {
		t.Fatalf("Failed to build cost tree: %v", err)
	}
	if len(tree.Children) != 2 {
		t.Errorf("Expected both dated edges without a date filter, got %d", len(tree.Children))
	}
}

func TestBuildCostTree_UnknownItem(t *testing.T) {
	_, seed := fixtures.NewSeeder()
	_, err := buildTree(t, seed, "GHOST", RollupOptions{})
	if !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
