package model

import "github.com/shopspring/decimal"

// SystemStats 后台订单统计
type SystemStats struct {
	TotalOrders    int                 `json:"total_orders"`
	OrdersByStatus map[OrderStatus]int `json:"orders_by_status"`
	PaidAmount     decimal.Decimal     `json:"paid_amount"`
	PendingOrders  int                 `json:"pending_orders"`
	OpenRefunds    int                 `json:"open_refunds"`
}
