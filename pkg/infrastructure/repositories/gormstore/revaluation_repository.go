package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
)

// RevaluationRepository stores the revaluation_records audit table
type RevaluationRepository struct {
	db *gorm.DB
}

// Verify interface compliance
var _ repositories.RevaluationRepository = (*RevaluationRepository)(nil)

func (r *RevaluationRepository) CreateRecord(ctx context.Context, record *entities.RevaluationRecord) error {
	m := newRevaluationModel(record)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *RevaluationRepository) ListByLot(ctx context.Context, lotID entities.LotID) ([]*entities.RevaluationRecord, error) {
	return r.list(r.db.WithContext(ctx).Where("lot_id = ?", string(lotID)))
}

func (r *RevaluationRepository) ListAll(ctx context.Context) ([]*entities.RevaluationRecord, error) {
	return r.list(r.db.WithContext(ctx))
}

func (r *RevaluationRepository) list(query *gorm.DB) ([]*entities.RevaluationRecord, error) {
	var ms []revaluationModel
	if err := query.Order("seq").Find(&ms).Error; err != nil {
		return nil, err
	}
	records := make([]*entities.RevaluationRecord, 0, len(ms))
	for i := range ms {
		records = append(records, ms[i].toEntity())
	}
	return records, nil
}
