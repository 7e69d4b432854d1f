package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
)

// ItemRepository stores items in the items table
type ItemRepository struct {
	db *gorm.DB
}

// Verify interface compliance
var _ repositories.ItemRepository = (*ItemRepository)(nil)

func (r *ItemRepository) GetItem(ctx context.Context, id entities.ItemID) (*entities.Item, error) {
	var m itemModel
	if err := r.db.WithContext(ctx).Where("id = ?", string(id)).First(&m).Error; err != nil {
		return nil, notFound(err, "item", string(id))
	}
	return m.toEntity(), nil
}

func (r *ItemRepository) GetItemBySKU(ctx context.Context, sku string) (*entities.Item, error) {
	var m itemModel
	if err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&m).Error; err != nil {
		return nil, notFound(err, "item", sku)
	}
	return m.toEntity(), nil
}

// ListItems returns all items ordered by SKU
func (r *ItemRepository) ListItems(ctx context.Context) ([]*entities.Item, error) {
	var ms []itemModel
	if err := r.db.WithContext(ctx).Order("sku").Find(&ms).Error; err != nil {
		return nil, err
	}
	items := make([]*entities.Item, 0, len(ms))
	for i := range ms {
		items = append(items, ms[i].toEntity())
	}
	return items, nil
}

// SaveItem upserts by id
func (r *ItemRepository) SaveItem(ctx context.Context, item *entities.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	m := newItemModel(item)
	return r.db.WithContext(ctx).Save(&m).Error
}
