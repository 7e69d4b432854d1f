package commands

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/infrastructure/repositories/csv"
)

// GenerateConfig holds configuration for scenario generation
type GenerateConfig struct {
	Items       int    // Total number of items to generate
	MaxDepth    int    // Maximum depth of the assembly graph
	LotsPerLeaf int    // Opening lots written for each purchased leaf
	OutputDir   string // Output directory for generated files
	Seed        int64  // Random seed for reproducible generation
}

// scenarioNode is an item in the generated assembly graph
type scenarioNode struct {
	ID       entities.ItemID
	Level    int
	Children []*scenarioEdge
	Parents  []*scenarioNode
	IsRoot   bool
}

type scenarioEdge struct {
	Child *scenarioNode
	Ratio decimal.Decimal
	Loss  decimal.Decimal
}

// ScenarioGenerator builds a random but valid costing dataset
type ScenarioGenerator struct {
	config GenerateConfig
	rand   *rand.Rand
	nodes  map[entities.ItemID]*scenarioNode
	order  []*scenarioNode
}

// NewScenarioGenerator creates a generator; a zero seed uses the clock
func NewScenarioGenerator(config GenerateConfig) *ScenarioGenerator {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if config.LotsPerLeaf <= 0 {
		config.LotsPerLeaf = 2
	}

	return &ScenarioGenerator{
		config: config,
		rand:   rand.New(rand.NewSource(seed)),
		nodes:  make(map[entities.ItemID]*scenarioNode),
	}
}

func runGenerate(_ context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "generate")
	var config GenerateConfig
	fs.IntVar(&config.Items, "items", 0, "Number of items to generate (required)")
	fs.IntVar(&config.MaxDepth, "max-depth", 0, "Maximum depth of the assembly graph (required)")
	fs.IntVar(&config.LotsPerLeaf, "lots", 2, "Opening lots per purchased leaf")
	fs.StringVar(&config.OutputDir, "output", "", "Output directory for generated files (required)")
	fs.Int64Var(&config.Seed, "seed", 0, "Random seed for reproducible generation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if config.Items < 2 || config.MaxDepth < 1 || config.OutputDir == "" {
		return errors.New("-items (at least 2), -max-depth and -output are required")
	}

	data := NewScenarioGenerator(config).Generate()
	if err := csv.WriteDir(config.OutputDir, data); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "✅ Generated %d items, %d assembly edges, %d lots in %s\n",
		len(data.Items), len(data.Edges), len(data.Lots), config.OutputDir)
	return nil
}

// Generate builds the graph and turns it into items, edges and opening lots.
// Every leaf gets a cost authority, so each root can be rolled up.
func (g *ScenarioGenerator) Generate() *csv.Dataset {
	g.buildGraph()

	data := &csv.Dataset{}
	baseDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, node := range g.order {
		item := g.item(node)
		data.Items = append(data.Items, item)

		for _, edge := range node.Children {
			data.Edges = append(data.Edges, &entities.AssemblyEdge{
				ParentID:   node.ID,
				ChildID:    edge.Child.ID,
				Ratio:      edge.Ratio,
				LossFactor: edge.Loss,
				Active:     true,
			})
		}

		if !item.Purchasable {
			continue
		}
		for i := 0; i < g.config.LotsPerLeaf; i++ {
			data.Lots = append(data.Lots, csv.LotRow{
				ItemID:     node.ID,
				Code:       fmt.Sprintf("%s-L%02d", node.ID, i+1),
				Quantity:   decimal.NewFromInt(int64(50 + g.rand.Intn(950))),
				UnitCost:   g.price(),
				ReceivedAt: baseDate.AddDate(0, 0, g.rand.Intn(365)),
			})
		}
	}

	if overhead := g.overhead(data); overhead != nil {
		data.Items = append(data.Items, overhead)
	}
	return data
}

// buildGraph grows the graph level by level with occasional shared components
func (g *ScenarioGenerator) buildGraph() {
	numRoots := max(1, g.config.Items/50+g.rand.Intn(3))
	var current []*scenarioNode
	for i := 0; i < numRoots; i++ {
		node := g.add(fmt.Sprintf("FG_%03d", i+1), 0)
		node.IsRoot = true
		current = append(current, node)
	}

	level := 0
	for level < g.config.MaxDepth && len(g.nodes) < g.config.Items {
		level++
		var next []*scenarioNode

		for _, parent := range current {
			numChildren := 2 + g.rand.Intn(4)
			for c := 0; c < numChildren && len(g.nodes) < g.config.Items; c++ {
				var child *scenarioNode
				if level > 1 && g.rand.Float64() < 0.2 {
					if candidates := g.shareable(level, parent); len(candidates) > 0 {
						child = candidates[g.rand.Intn(len(candidates))]
					}
				}
				if child == nil {
					child = g.add(fmt.Sprintf("PART_L%d_%04d", level, len(g.nodes)), level)
					next = append(next, child)
				}
				g.link(parent, child)
			}
		}

		if len(next) == 0 {
			break
		}
		current = next
	}

	// remaining items become raw materials under the deepest level
	for len(g.nodes) < g.config.Items && len(current) > 0 {
		node := g.add(fmt.Sprintf("RAW_%04d", len(g.nodes)), level+1)
		g.link(current[g.rand.Intn(len(current))], node)
	}
}

func (g *ScenarioGenerator) add(id string, level int) *scenarioNode {
	node := &scenarioNode{ID: entities.ItemID(id), Level: level}
	g.nodes[node.ID] = node
	g.order = append(g.order, node)
	return node
}

func (g *ScenarioGenerator) link(parent, child *scenarioNode) {
	for _, e := range parent.Children {
		if e.Child == child {
			return
		}
	}
	ratio := decimal.NewFromInt(int64(1 + g.rand.Intn(5)))
	if child.Level > 2 {
		// deeper materials are consumed in fractional kilograms
		ratio = decimal.NewFromInt(int64(1 + g.rand.Intn(40))).Div(decimal.NewFromInt(8))
	}
	loss := decimal.Zero
	if g.rand.Float64() < 0.3 {
		loss = decimal.NewFromInt(int64(1 + g.rand.Intn(5))).Div(decimal.NewFromInt(100))
	}
	parent.Children = append(parent.Children, &scenarioEdge{Child: child, Ratio: ratio, Loss: loss})
	child.Parents = append(child.Parents, parent)
}

// shareable finds existing nodes that can gain another parent without closing a cycle
func (g *ScenarioGenerator) shareable(level int, parent *scenarioNode) []*scenarioNode {
	var candidates []*scenarioNode
	for _, node := range g.order {
		if node.Level >= level-1 && len(node.Parents) < 3 && node != parent && !g.isAncestor(node, parent) {
			candidates = append(candidates, node)
		}
	}
	return candidates
}

// isAncestor checks if candidate is an ancestor of node
func (g *ScenarioGenerator) isAncestor(candidate, node *scenarioNode) bool {
	visited := make(map[entities.ItemID]bool)
	var walk func(n *scenarioNode) bool
	walk = func(n *scenarioNode) bool {
		if visited[n.ID] {
			return false
		}
		visited[n.ID] = true
		for _, p := range n.Parents {
			if p == candidate || walk(p) {
				return true
			}
		}
		return false
	}
	return walk(node)
}

func (g *ScenarioGenerator) item(node *scenarioNode) *entities.Item {
	name := fmt.Sprintf("%s Component", node.ID)
	switch {
	case node.IsRoot:
		name = fmt.Sprintf("%s Finished Good", node.ID)
	case len(node.Children) > 0:
		name = fmt.Sprintf("%s Subassembly", node.ID)
	}

	item := &entities.Item{
		ID:          node.ID,
		SKU:         "SKU-" + string(node.ID),
		Name:        name,
		Sellable:    node.IsRoot,
		Assemblable: len(node.Children) > 0,
		Tracked:     true,
	}
	if item.Assemblable {
		return item
	}

	// leaves: mostly purchased lots, some standard-costed, a few estimated
	roll := g.rand.Float64()
	switch {
	case roll < 0.75:
		item.Purchasable = true
	case roll < 0.9:
		std := g.price()
		item.StandardCost = &std
	default:
		est := g.price()
		item.EstimatedCost = &est
		item.EstimateReason = "generated placeholder"
	}
	return item
}

// overhead adds a standard-costed energy item consumed by every root
func (g *ScenarioGenerator) overhead(data *csv.Dataset) *entities.Item {
	energy := entities.ItemID("ENERGY")
	if _, exists := g.nodes[energy]; exists {
		return nil
	}
	rate := decimal.RequireFromString("0.35")
	for _, node := range g.order {
		if !node.IsRoot {
			continue
		}
		data.Edges = append(data.Edges, &entities.AssemblyEdge{
			ParentID:           node.ID,
			ChildID:            energy,
			Ratio:              decimal.NewFromInt(int64(1 + g.rand.Intn(10))),
			IsEnergyOrOverhead: true,
			Active:             true,
		})
	}
	return &entities.Item{ID: energy, SKU: "SKU-ENERGY", Name: "Plant energy (kWh)", StandardCost: &rate}
}

func (g *ScenarioGenerator) price() decimal.Decimal {
	cents := 50 + g.rand.Intn(2000)
	return decimal.New(int64(cents), -2)
}
