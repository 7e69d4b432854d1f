package memory

import (
	"context"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
)

// DependencyRepository provides in-memory assembly cost dependency storage
type DependencyRepository struct {
	access
}

// Verify interface compliance
var _ repositories.DependencyRepository = (*DependencyRepository)(nil)

// RecordDependency appends a dependency row
func (r *DependencyRepository) RecordDependency(_ context.Context, dep *entities.AssemblyCostDependency) error {
	return r.write(func(st *state) error {
		st.dependencies = append(st.dependencies, *dep)
		return nil
	})
}

// ListByConsumedLot returns rows where lotID was consumed
func (r *DependencyRepository) ListByConsumedLot(_ context.Context, lotID entities.LotID) ([]*entities.AssemblyCostDependency, error) {
	return r.filter(func(d *entities.AssemblyCostDependency) bool { return d.ConsumedLotID == lotID }), nil
}

// ListByProducedLot returns rows where lotID was produced
func (r *DependencyRepository) ListByProducedLot(_ context.Context, lotID entities.LotID) ([]*entities.AssemblyCostDependency, error) {
	return r.filter(func(d *entities.AssemblyCostDependency) bool { return d.ProducedLotID == lotID }), nil
}

func (r *DependencyRepository) filter(match func(d *entities.AssemblyCostDependency) bool) []*entities.AssemblyCostDependency {
	deps := []*entities.AssemblyCostDependency{}
	r.read(func(st *state) {
		for i := range st.dependencies {
			if match(&st.dependencies[i]) {
				c := st.dependencies[i]
				deps = append(deps, &c)
			}
		}
	})
	return deps
}
