package memory

import (
	"context"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
)

// AssemblyRepository provides in-memory BOM edge storage indexed by parent
type AssemblyRepository struct {
	access
}

// Verify interface compliance
var _ repositories.AssemblyRepository = (*AssemblyRepository)(nil)

// ListEdgesByParent returns every edge of a parent, active or not
func (r *AssemblyRepository) ListEdgesByParent(_ context.Context, parentID entities.ItemID) ([]*entities.AssemblyEdge, error) {
	edges := []*entities.AssemblyEdge{}
	r.read(func(st *state) {
		for _, index := range st.edgeIndexes[parentID] {
			e := st.edges[index]
			edges = append(edges, &e)
		}
	})
	return edges, nil
}

// ListAllEdges returns every edge in insertion order
func (r *AssemblyRepository) ListAllEdges(_ context.Context) ([]*entities.AssemblyEdge, error) {
	edges := []*entities.AssemblyEdge{}
	r.read(func(st *state) {
		for i := range st.edges {
			e := st.edges[i]
			edges = append(edges, &e)
		}
	})
	return edges, nil
}

// SaveEdges appends edges to the graph
func (r *AssemblyRepository) SaveEdges(_ context.Context, edges []*entities.AssemblyEdge) error {
	return r.write(func(st *state) error {
		for _, e := range edges {
			index := len(st.edges)
			st.edges = append(st.edges, *e)
			st.edgeIndexes[e.ParentID] = append(st.edgeIndexes[e.ParentID], index)
		}
		return nil
	})
}
