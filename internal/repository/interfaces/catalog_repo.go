package interfaces

import (
	"context"

	"travel-booking-backend/internal/model"
)

// CatalogRepository 商品目录只读接口
type CatalogRepository interface {
	// GetItem 商品不存在时返回 nil, nil
	GetBasePrice(ctx context.Context, itemType model.ItemType, itemID int) (*model.CatalogItem, error)
}
