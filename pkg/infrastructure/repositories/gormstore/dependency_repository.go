package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
)

// DependencyRepository stores the assembly_cost_dependencies table
type DependencyRepository struct {
	db *gorm.DB
}

// Verify interface compliance
var _ repositories.DependencyRepository = (*DependencyRepository)(nil)

func (r *DependencyRepository) RecordDependency(ctx context.Context, dep *entities.AssemblyCostDependency) error {
	m := newDependencyModel(dep)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *DependencyRepository) ListByConsumedLot(ctx context.Context, lotID entities.LotID) ([]*entities.AssemblyCostDependency, error) {
	return r.list(r.db.WithContext(ctx).Where("consumed_lot_id = ?", string(lotID)))
}

func (r *DependencyRepository) ListByProducedLot(ctx context.Context, lotID entities.LotID) ([]*entities.AssemblyCostDependency, error) {
	return r.list(r.db.WithContext(ctx).Where("produced_lot_id = ?", string(lotID)))
}

func (r *DependencyRepository) list(query *gorm.DB) ([]*entities.AssemblyCostDependency, error) {
	var ms []dependencyModel
	if err := query.Order("seq").Find(&ms).Error; err != nil {
		return nil, err
	}
	deps := make([]*entities.AssemblyCostDependency, 0, len(ms))
	for i := range ms {
		deps = append(deps, ms[i].toEntity())
	}
	return deps, nil
}
