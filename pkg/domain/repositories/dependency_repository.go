package repositories

import (
	"context"

	"github.com/vsinha/costing/pkg/domain/entities"
)

// DependencyRepository stores assembly cost dependencies recorded at production time
type DependencyRepository interface {
	RecordDependency(ctx context.Context, dep *entities.AssemblyCostDependency) error
	ListByConsumedLot(ctx context.Context, lotID entities.LotID) ([]*entities.AssemblyCostDependency, error)
	ListByProducedLot(ctx context.Context, lotID entities.LotID) ([]*entities.AssemblyCostDependency, error)
}
