package costing

import (
	"context"
	"time"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
)

// AssemblyGraphReader yields the effective child edges of a parent
type AssemblyGraphReader struct {
	edges repositories.AssemblyRepository
}

func NewAssemblyGraphReader(edges repositories.AssemblyRepository) *AssemblyGraphReader {
	return &AssemblyGraphReader{edges: edges}
}

// ChildrenOf returns active edges of parentID whose window contains asOf.
// An empty result marks a leaf.
func (g *AssemblyGraphReader) ChildrenOf(ctx context.Context, parentID entities.ItemID, asOf *time.Time) ([]*entities.AssemblyEdge, error) {
	all, err := g.edges.ListEdgesByParent(ctx, parentID)
	if err != nil {
		return nil, err
	}

	children := make([]*entities.AssemblyEdge, 0, len(all))
	for _, edge := range all {
		if edge.EffectiveAt(asOf) {
			children = append(children, edge)
		}
	}
	return children, nil
}
