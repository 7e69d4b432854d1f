package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
)

// AssemblyRepository stores BOM edges in the assembly_edges table
type AssemblyRepository struct {
	db *gorm.DB
}

// Verify interface compliance
var _ repositories.AssemblyRepository = (*AssemblyRepository)(nil)

func (r *AssemblyRepository) ListEdgesByParent(ctx context.Context, parentID entities.ItemID) ([]*entities.AssemblyEdge, error) {
	return r.list(r.db.WithContext(ctx).Where("parent_id = ?", string(parentID)))
}

func (r *AssemblyRepository) ListAllEdges(ctx context.Context) ([]*entities.AssemblyEdge, error) {
	return r.list(r.db.WithContext(ctx))
}

func (r *AssemblyRepository) list(query *gorm.DB) ([]*entities.AssemblyEdge, error) {
	var ms []edgeModel
	if err := query.Order("seq").Find(&ms).Error; err != nil {
		return nil, err
	}
	edges := make([]*entities.AssemblyEdge, 0, len(ms))
	for i := range ms {
		edges = append(edges, ms[i].toEntity())
	}
	return edges, nil
}

func (r *AssemblyRepository) SaveEdges(ctx context.Context, edges []*entities.AssemblyEdge) error {
	if len(edges) == 0 {
		return nil
	}
	ms := make([]edgeModel, 0, len(edges))
	for _, e := range edges {
		ms = append(ms, newEdgeModel(e))
	}
	return r.db.WithContext(ctx).Create(&ms).Error
}
