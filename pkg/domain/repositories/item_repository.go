package repositories

import (
	"context"

	"github.com/vsinha/costing/pkg/domain/entities"
)

// ItemRepository provides access to item master data
type ItemRepository interface {
	GetItem(ctx context.Context, id entities.ItemID) (*entities.Item, error)
	GetItemBySKU(ctx context.Context, sku string) (*entities.Item, error)
	ListItems(ctx context.Context) ([]*entities.Item, error)
	SaveItem(ctx context.Context, item *entities.Item) error
}
