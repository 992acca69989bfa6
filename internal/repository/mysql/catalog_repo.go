package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"travel-booking-backend/internal/model"
	"travel-booking-backend/internal/util"

	"go.uber.org/zap"
)

// catalogQueries 每种商品类型对应的价格查询，表名固定不拼接用户输入
var catalogQueries = map[model.ItemType]string{
	model.ItemTour:          `SELECT id, name, price, 0, updated_at FROM tours WHERE id = ?`,
	model.ItemAccommodation: `SELECT id, name, price, 0, updated_at FROM accommodations WHERE id = ?`,
	model.ItemVehicle:       `SELECT id, name, price, seat_capacity, updated_at FROM vehicles WHERE id = ?`,
	model.ItemTicket:        `SELECT id, name, price, 0, updated_at FROM tickets WHERE id = ?`,
}

type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) GetBasePrice(ctx context.Context, itemType model.ItemType, itemID int) (*model.CatalogItem, error) {
	query, ok := catalogQueries[itemType]
	if !ok {
		return nil, fmt.Errorf("unknown item type %q", itemType)
	}

	var item model.CatalogItem
	err := r.db.QueryRowContext(ctx, query, itemID).Scan(
		&item.ID, &item.Name, &item.Price, &item.SeatCapacity, &item.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			util.Logger.Info("商品不存在",
				zap.String("item_type", string(itemType)),
				zap.Int("item_id", itemID))
			return nil, nil
		}
		util.Logger.Error("查询商品价格失败",
			zap.Error(err),
			zap.String("item_type", string(itemType)),
			zap.Int("item_id", itemID))
		return nil, fmt.Errorf("failed to get catalog item: %w", err)
	}
	item.Type = itemType
	return &item, nil
}
