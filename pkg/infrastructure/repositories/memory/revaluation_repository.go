package memory

import (
	"context"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
)

// RevaluationRepository provides the in-memory revaluation audit trail
type RevaluationRepository struct {
	access
}

// Verify interface compliance
var _ repositories.RevaluationRepository = (*RevaluationRepository)(nil)

// CreateRecord appends a revaluation record
func (r *RevaluationRepository) CreateRecord(_ context.Context, record *entities.RevaluationRecord) error {
	return r.write(func(st *state) error {
		st.revaluations = append(st.revaluations, *record)
		return nil
	})
}

// ListByLot returns the lot's records in append order
func (r *RevaluationRepository) ListByLot(_ context.Context, lotID entities.LotID) ([]*entities.RevaluationRecord, error) {
	records := []*entities.RevaluationRecord{}
	r.read(func(st *state) {
		for i := range st.revaluations {
			if st.revaluations[i].LotID == lotID {
				c := st.revaluations[i]
				records = append(records, &c)
			}
		}
	})
	return records, nil
}

// ListAll returns every record in append order
func (r *RevaluationRepository) ListAll(_ context.Context) ([]*entities.RevaluationRecord, error) {
	records := []*entities.RevaluationRecord{}
	r.read(func(st *state) {
		for i := range st.revaluations {
			c := st.revaluations[i]
			records = append(records, &c)
		}
	})
	return records, nil
}
