package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
)

// LedgerRepository stores the append-only ledger_transactions table
type LedgerRepository struct {
	db *gorm.DB
}

// Verify interface compliance
var _ repositories.LedgerRepository = (*LedgerRepository)(nil)

func (r *LedgerRepository) AppendTransaction(ctx context.Context, tx *entities.LedgerTransaction) error {
	m := newLedgerModel(tx)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *LedgerRepository) GetTransaction(ctx context.Context, id entities.TransactionID) (*entities.LedgerTransaction, error) {
	var m ledgerModel
	if err := r.db.WithContext(ctx).Where("id = ?", string(id)).First(&m).Error; err != nil {
		return nil, notFound(err, "transaction", string(id))
	}
	return m.toEntity()
}

func (r *LedgerRepository) ListTransactionsByLot(ctx context.Context, lotID entities.LotID) ([]*entities.LedgerTransaction, error) {
	var ms []ledgerModel
	if err := r.db.WithContext(ctx).Where("lot_id = ?", string(lotID)).Order("seq").Find(&ms).Error; err != nil {
		return nil, err
	}
	txs := make([]*entities.LedgerTransaction, 0, len(ms))
	for i := range ms {
		tx, err := ms[i].toEntity()
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (r *LedgerRepository) FindReversal(ctx context.Context, id entities.TransactionID) (*entities.LedgerTransaction, error) {
	var ms []ledgerModel
	if err := r.db.WithContext(ctx).Where("reverses_id = ?", string(id)).Order("seq").Limit(1).Find(&ms).Error; err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return nil, nil
	}
	return ms[0].toEntity()
}
