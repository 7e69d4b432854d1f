package memory

import (
	"context"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
)

// LedgerRepository provides an in-memory append-only transaction log
type LedgerRepository struct {
	access
}

// Verify interface compliance
var _ repositories.LedgerRepository = (*LedgerRepository)(nil)

// AppendTransaction appends a transaction; ids are unique
func (r *LedgerRepository) AppendTransaction(_ context.Context, tx *entities.LedgerTransaction) error {
	return r.write(func(st *state) error {
		if _, exists := st.txIndex[tx.ID]; exists {
			return &entities.InvalidArgumentError{Field: "transaction id", Reason: string(tx.ID) + " already exists"}
		}
		st.txIndex[tx.ID] = len(st.transactions)
		st.transactions = append(st.transactions, *tx)
		return nil
	})
}

// GetTransaction returns a transaction by id
func (r *LedgerRepository) GetTransaction(_ context.Context, id entities.TransactionID) (*entities.LedgerTransaction, error) {
	var tx *entities.LedgerTransaction
	r.read(func(st *state) {
		if index, ok := st.txIndex[id]; ok {
			c := st.transactions[index]
			tx = &c
		}
	})
	if tx == nil {
		return nil, &entities.NotFoundError{Kind: "transaction", Key: string(id)}
	}
	return tx, nil
}

// ListTransactionsByLot returns the lot's transactions in append order
func (r *LedgerRepository) ListTransactionsByLot(_ context.Context, lotID entities.LotID) ([]*entities.LedgerTransaction, error) {
	txs := []*entities.LedgerTransaction{}
	r.read(func(st *state) {
		for i := range st.transactions {
			if st.transactions[i].LotID == lotID {
				c := st.transactions[i]
				txs = append(txs, &c)
			}
		}
	})
	return txs, nil
}

// FindReversal returns the transaction reversing id, or nil
func (r *LedgerRepository) FindReversal(_ context.Context, id entities.TransactionID) (*entities.LedgerTransaction, error) {
	var tx *entities.LedgerTransaction
	r.read(func(st *state) {
		for i := range st.transactions {
			if st.transactions[i].ReversesID == id {
				c := st.transactions[i]
				tx = &c
				return
			}
		}
	})
	return tx, nil
}
