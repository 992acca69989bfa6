package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogItem 可预订商品在目录中的价格信息，只读
type CatalogItem struct {
	ID           int             `json:"id"`
	Type         ItemType        `json:"item_type"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	SeatCapacity int             `json:"seat_capacity,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
