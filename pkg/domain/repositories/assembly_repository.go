package repositories

import (
	"context"

	"github.com/vsinha/costing/pkg/domain/entities"
)

// AssemblyRepository provides read access to the BOM graph.
// Edges are returned unfiltered; effectivity is applied by the graph reader.
type AssemblyRepository interface {
	ListEdgesByParent(ctx context.Context, parentID entities.ItemID) ([]*entities.AssemblyEdge, error)
	ListAllEdges(ctx context.Context) ([]*entities.AssemblyEdge, error)
	SaveEdges(ctx context.Context, edges []*entities.AssemblyEdge) error
}
