package repositories

import (
	"context"

	"github.com/vsinha/costing/pkg/domain/entities"
)

// RevaluationRepository is the append-only revaluation audit trail
type RevaluationRepository interface {
	CreateRecord(ctx context.Context, record *entities.RevaluationRecord) error
	// ListByLot returns records for the lot in creation order
	ListByLot(ctx context.Context, lotID entities.LotID) ([]*entities.RevaluationRecord, error)
	ListAll(ctx context.Context) ([]*entities.RevaluationRecord, error)
}
