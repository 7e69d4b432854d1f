package memory

import (
	"context"
	"sort"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
)

// ItemRepository provides in-memory item storage
type ItemRepository struct {
	access
}

// Verify interface compliance
var _ repositories.ItemRepository = (*ItemRepository)(nil)

// GetItem returns item master data for an id
func (r *ItemRepository) GetItem(_ context.Context, id entities.ItemID) (*entities.Item, error) {
	var item *entities.Item
	r.read(func(st *state) {
		if index, exists := st.itemsMap[id]; exists {
			c := st.items[index]
			item = &c
		}
	})
	if item == nil {
		return nil, &entities.NotFoundError{Kind: "item", Key: string(id)}
	}
	return item, nil
}

// GetItemBySKU returns the item carrying sku
func (r *ItemRepository) GetItemBySKU(_ context.Context, sku string) (*entities.Item, error) {
	var item *entities.Item
	r.read(func(st *state) {
		for i := range st.items {
			if st.items[i].SKU == sku {
				c := st.items[i]
				item = &c
				return
			}
		}
	})
	if item == nil {
		return nil, &entities.NotFoundError{Kind: "item", Key: sku}
	}
	return item, nil
}

// ListItems returns all items ordered by SKU
func (r *ItemRepository) ListItems(_ context.Context) ([]*entities.Item, error) {
	var items []*entities.Item
	r.read(func(st *state) {
		for i := range st.items {
			c := st.items[i]
			items = append(items, &c)
		}
	})
	sort.Slice(items, func(i, j int) bool { return items[i].SKU < items[j].SKU })
	return items, nil
}

// SaveItem inserts or replaces an item
func (r *ItemRepository) SaveItem(_ context.Context, item *entities.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	return r.write(func(st *state) error {
		if index, exists := st.itemsMap[item.ID]; exists {
			st.items[index] = *item
			return nil
		}
		st.itemsMap[item.ID] = len(st.items)
		st.items = append(st.items, *item)
		return nil
	})
}
