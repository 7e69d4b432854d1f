package costing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
)

// DefaultMaxDepth bounds roll-up recursion independently of cycle detection
const DefaultMaxDepth = 64

// RollupOptions configures one cost tree build
type RollupOptions struct {
	AsOf             *time.Time
	IncludeEstimates bool
	MaxDepth         int
}

// RollupEngine builds cost trees by walking the assembly graph depth-first
type RollupEngine struct {
	items    repositories.ItemRepository
	graph    *AssemblyGraphReader
	resolver *CostResolver
}

// NewRollupEngine binds an engine to one set of repositories
func NewRollupEngine(repos repositories.Repositories) *RollupEngine {
	return &RollupEngine{
		items:    repos.Items,
		graph:    NewAssemblyGraphReader(repos.Assemblies),
		resolver: NewCostResolver(repos.Lots),
	}
}

// path is the chain of items from the root to the current node. Each branch
// extends its own copy, so siblings never see each other's entries.
type path struct {
	ids  []entities.ItemID
	skus []string
}

func (p path) contains(id entities.ItemID) bool {
	for _, seen := range p.ids {
		if seen == id {
			return true
		}
	}
	return false
}

func (p path) with(id entities.ItemID, sku string) path {
	return path{
		ids:  append(append(make([]entities.ItemID, 0, len(p.ids)+1), p.ids...), id),
		skus: append(append(make([]string, 0, len(p.skus)+1), p.skus...), sku),
	}
}

// BuildCostTree rolls up the cost of itemID. The root node is costed per one unit.
func (e *RollupEngine) BuildCostTree(ctx context.Context, itemID entities.ItemID, opts RollupOptions) (*entities.CostNode, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return e.build(ctx, itemID, opts, path{}, 0)
}

func (e *RollupEngine) build(ctx context.Context, itemID entities.ItemID, opts RollupOptions, visited path, level int) (*entities.CostNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	item, err := e.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	branch := visited.with(itemID, item.SKU)
	if visited.contains(itemID) {
		return nil, &entities.CircularBOMError{Path: branch.skus}
	}
	if level > opts.MaxDepth {
		return nil, &entities.BOMDepthExceededError{Path: branch.skus, MaxDepth: opts.MaxDepth}
	}

	node := &entities.CostNode{
		ItemID:            item.ID,
		Level:             level,
		SKU:               item.SKU,
		Name:              item.Name,
		QuantityPerParent: entities.RoundQuantity(decimal.NewFromInt(1)),
		Children:          []*entities.CostNode{},
	}

	var edges []*entities.AssemblyEdge
	if item.CanHaveChildren() {
		edges, err = e.graph.ChildrenOf(ctx, itemID, opts.AsOf)
		if err != nil {
			return nil, err
		}
	}

	if len(edges) == 0 {
		result, err := e.resolver.Resolve(ctx, item, ResolveOptions{AsOf: opts.AsOf, IncludeEstimates: opts.IncludeEstimates})
		if err != nil {
			return nil, err
		}
		node.UnitCost = result.UnitCost
		node.ExtendedCost = result.UnitCost
		node.CostSource = result.Source
		node.HasEstimate = result.HasEstimate
		node.EstimateReason = result.EstimateReason
		return node, nil
	}

	total := decimal.Zero
	results := make([]entities.CostResult, 0, len(edges))
	var reasons []string
	for _, edge := range edges {
		child, err := e.build(ctx, edge.ChildID, opts, branch, level+1)
		if err != nil {
			return nil, err
		}

		qty := edge.QuantityNeeded()
		child.QuantityPerParent = entities.RoundQuantity(qty)
		child.ExtendedCost = entities.RoundMoney(child.UnitCost.Mul(qty))
		child.IsOverhead = edge.IsEnergyOrOverhead
		total = total.Add(child.ExtendedCost)

		results = append(results, child.Result())
		if child.HasEstimate {
			reasons = append(reasons, fmt.Sprintf("%s: %s", child.SKU, child.EstimateReason))
		}
		node.Children = append(node.Children, child)
	}

	node.UnitCost = entities.RoundMoney(total)
	node.ExtendedCost = node.UnitCost
	node.CostSource = entities.CombineCostSources(results)
	if node.CostSource == entities.CostSourceEstimated {
		node.HasEstimate = true
		node.EstimateReason = strings.Join(reasons, "; ")
	}
	return node, nil
}
