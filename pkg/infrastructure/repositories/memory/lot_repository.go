package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
)

// LotRepository provides in-memory lot storage
type LotRepository struct {
	access
}

// Verify interface compliance
var _ repositories.LotRepository = (*LotRepository)(nil)

// GetLot returns a copy of the lot
func (r *LotRepository) GetLot(_ context.Context, id entities.LotID) (*entities.Lot, error) {
	var lot *entities.Lot
	r.read(func(st *state) {
		if l, ok := st.lots[id]; ok {
			lot = l.Clone()
		}
	})
	if lot == nil {
		return nil, &entities.NotFoundError{Kind: "lot", Key: string(id)}
	}
	return lot, nil
}

// GetLotForUpdate is GetLot; transactions are already serialized by the store
func (r *LotRepository) GetLotForUpdate(ctx context.Context, id entities.LotID) (*entities.Lot, error) {
	return r.GetLot(ctx, id)
}

// FindLotByCode returns the lot of itemID carrying code
func (r *LotRepository) FindLotByCode(_ context.Context, itemID entities.ItemID, code string) (*entities.Lot, error) {
	var lot *entities.Lot
	r.read(func(st *state) {
		for _, l := range st.lots {
			if l.ItemID == itemID && l.Code == code {
				lot = l.Clone()
				return
			}
		}
	})
	if lot == nil {
		return nil, &entities.NotFoundError{Kind: "lot", Key: fmt.Sprintf("%s/%s", itemID, code)}
	}
	return lot, nil
}

// ListLotsByItem returns the item's lots matching filter in FIFO order
func (r *LotRepository) ListLotsByItem(_ context.Context, itemID entities.ItemID, filter repositories.LotFilter) ([]*entities.Lot, error) {
	lots := []*entities.Lot{}
	r.read(func(st *state) {
		for _, l := range st.lots {
			if l.ItemID != itemID {
				continue
			}
			if filter.ActiveOnly && !l.Active {
				continue
			}
			if filter.ReceivedOnOrBefore != nil && !l.ReceivedOnOrBefore(*filter.ReceivedOnOrBefore) {
				continue
			}
			lots = append(lots, l.Clone())
		}
	})
	sortFIFO(lots)
	return lots, nil
}

// ListAllLots returns every lot in FIFO order
func (r *LotRepository) ListAllLots(_ context.Context) ([]*entities.Lot, error) {
	lots := []*entities.Lot{}
	r.read(func(st *state) {
		for _, l := range st.lots {
			lots = append(lots, l.Clone())
		}
	})
	sortFIFO(lots)
	return lots, nil
}

// CreateLot stores a new lot; codes are unique per item
func (r *LotRepository) CreateLot(_ context.Context, lot *entities.Lot) error {
	return r.write(func(st *state) error {
		if _, exists := st.lots[lot.ID]; exists {
			return &entities.InvalidArgumentError{Field: "lot id", Reason: fmt.Sprintf("%s already exists", lot.ID)}
		}
		for _, l := range st.lots {
			if l.ItemID == lot.ItemID && l.Code == lot.Code {
				return &entities.InvalidArgumentError{Field: "lot code", Reason: fmt.Sprintf("%s already exists for item %s", lot.Code, lot.ItemID)}
			}
		}
		stored := lot.Clone()
		stored.Version = 1
		st.lots[lot.ID] = stored
		lot.Version = 1
		return nil
	})
}

// UpdateLot replaces the lot when its version matches and bumps the version
func (r *LotRepository) UpdateLot(_ context.Context, lot *entities.Lot) error {
	return r.write(func(st *state) error {
		current, ok := st.lots[lot.ID]
		if !ok {
			return &entities.NotFoundError{Kind: "lot", Key: string(lot.ID)}
		}
		if current.Version != lot.Version {
			return &entities.ConcurrentModificationError{LotCode: lot.Code}
		}
		stored := lot.Clone()
		stored.Version = lot.Version + 1
		st.lots[lot.ID] = stored
		lot.Version = stored.Version
		return nil
	})
}

func sortFIFO(lots []*entities.Lot) {
	sort.Slice(lots, func(i, j int) bool {
		if lots[i].ReceivedAt.Equal(lots[j].ReceivedAt) {
			return lots[i].Code < lots[j].Code
		}
		return lots[i].ReceivedAt.Before(lots[j].ReceivedAt)
	})
}
