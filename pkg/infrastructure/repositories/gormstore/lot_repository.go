package gormstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
)

// LotRepository stores lots in the lots table
type LotRepository struct {
	db *gorm.DB
}

// Verify interface compliance
var _ repositories.LotRepository = (*LotRepository)(nil)

func (r *LotRepository) GetLot(ctx context.Context, id entities.LotID) (*entities.Lot, error) {
	return r.getLot(r.db.WithContext(ctx), id)
}

// GetLotForUpdate reads the lot with SELECT ... FOR UPDATE. The SQLite dialect
// drops the locking clause; its database-level write lock gives the same guarantee.
func (r *LotRepository) GetLotForUpdate(ctx context.Context, id entities.LotID) (*entities.Lot, error) {
	return r.getLot(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *LotRepository) getLot(db *gorm.DB, id entities.LotID) (*entities.Lot, error) {
	var m lotModel
	if err := db.Where("id = ?", string(id)).First(&m).Error; err != nil {
		return nil, notFound(err, "lot", string(id))
	}
	return m.toEntity(), nil
}

func (r *LotRepository) FindLotByCode(ctx context.Context, itemID entities.ItemID, code string) (*entities.Lot, error) {
	var m lotModel
	err := r.db.WithContext(ctx).Where("item_id = ? AND code = ?", string(itemID), code).First(&m).Error
	if err != nil {
		return nil, notFound(err, "lot", fmt.Sprintf("%s/%s", itemID, code))
	}
	return m.toEntity(), nil
}

func (r *LotRepository) ListLotsByItem(ctx context.Context, itemID entities.ItemID, filter repositories.LotFilter) ([]*entities.Lot, error) {
	query := r.db.WithContext(ctx).Where("item_id = ?", string(itemID))
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	lots, err := r.list(query)
	if err != nil {
		return nil, err
	}
	if filter.ReceivedOnOrBefore == nil {
		return lots, nil
	}

	// compared in Go so the inclusive boundary does not depend on timestamp text encoding
	eligible := make([]*entities.Lot, 0, len(lots))
	for _, lot := range lots {
		if lot.ReceivedOnOrBefore(*filter.ReceivedOnOrBefore) {
			eligible = append(eligible, lot)
		}
	}
	return eligible, nil
}

func (r *LotRepository) ListAllLots(ctx context.Context) ([]*entities.Lot, error) {
	return r.list(r.db.WithContext(ctx))
}

func (r *LotRepository) list(query *gorm.DB) ([]*entities.Lot, error) {
	var ms []lotModel
	if err := query.Order("received_at, code").Find(&ms).Error; err != nil {
		return nil, err
	}
	lots := make([]*entities.Lot, 0, len(ms))
	for i := range ms {
		lots = append(lots, ms[i].toEntity())
	}
	return lots, nil
}

func (r *LotRepository) CreateLot(ctx context.Context, lot *entities.Lot) error {
	db := r.db.WithContext(ctx)

	var count int64
	if err := db.Model(&lotModel{}).Where("id = ? OR (item_id = ? AND code = ?)", string(lot.ID), string(lot.ItemID), lot.Code).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return &entities.InvalidArgumentError{Field: "lot", Reason: fmt.Sprintf("%s (%s) already exists for item %s", lot.ID, lot.Code, lot.ItemID)}
	}

	m := newLotModel(lot)
	m.Version = 1
	if err := db.Create(&m).Error; err != nil {
		return err
	}
	lot.Version = 1
	return nil
}

// UpdateLot writes every mutable column guarded by the version the caller read
func (r *LotRepository) UpdateLot(ctx context.Context, lot *entities.Lot) error {
	db := r.db.WithContext(ctx)
	m := newLotModel(lot)

	res := db.Model(&lotModel{}).
		Where("id = ? AND version = ?", m.ID, lot.Version).
		Updates(map[string]interface{}{
			"quantity":           m.Quantity,
			"unit_cost":          m.UnitCost,
			"original_unit_cost": m.OriginalUnitCost,
			"current_unit_cost":  m.CurrentUnitCost,
			"received_at":        m.ReceivedAt,
			"active":             m.Active,
			"version":            lot.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.getLot(db, lot.ID); err != nil {
			return err
		}
		return &entities.ConcurrentModificationError{LotCode: lot.Code}
	}
	lot.Version++
	return nil
}
