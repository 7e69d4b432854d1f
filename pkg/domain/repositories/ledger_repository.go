package repositories

import (
	"context"

	"github.com/vsinha/costing/pkg/domain/entities"
)

// LedgerRepository is the append-only transaction log
type LedgerRepository interface {
	AppendTransaction(ctx context.Context, tx *entities.LedgerTransaction) error
	GetTransaction(ctx context.Context, id entities.TransactionID) (*entities.LedgerTransaction, error)
	// ListTransactionsByLot returns the lot's transactions in creation order
	ListTransactionsByLot(ctx context.Context, lotID entities.LotID) ([]*entities.LedgerTransaction, error)
	// FindReversal returns the transaction reversing id, or nil when none exists
	FindReversal(ctx context.Context, id entities.TransactionID) (*entities.LedgerTransaction, error)
}
