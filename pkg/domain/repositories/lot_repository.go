package repositories

import (
	"context"
	"time"

	"github.com/vsinha/costing/pkg/domain/entities"
)

// LotFilter narrows a lot listing
type LotFilter struct {
	// ActiveOnly excludes soft-deactivated lots
	ActiveOnly bool
	// ReceivedOnOrBefore excludes lots received after the given instant
	ReceivedOnOrBefore *time.Time
}

// LotRepository provides access to lot balances.
// Listings are ordered by ReceivedAt ascending (FIFO order), ties broken by code.
type LotRepository interface {
	GetLot(ctx context.Context, id entities.LotID) (*entities.Lot, error)
	// GetLotForUpdate reads a lot and locks its row until the surrounding transaction ends
	GetLotForUpdate(ctx context.Context, id entities.LotID) (*entities.Lot, error)
	FindLotByCode(ctx context.Context, itemID entities.ItemID, code string) (*entities.Lot, error)
	ListLotsByItem(ctx context.Context, itemID entities.ItemID, filter LotFilter) ([]*entities.Lot, error)
	ListAllLots(ctx context.Context) ([]*entities.Lot, error)
	CreateLot(ctx context.Context, lot *entities.Lot) error
	// UpdateLot persists lot if its Version still matches the stored one and
	// bumps Version on success. A mismatch fails with ConcurrentModificationError.
	UpdateLot(ctx context.Context, lot *entities.Lot) error
}
