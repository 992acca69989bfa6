package interfaces

import (
	"context"

	"travel-booking-backend/internal/model"
)

type OrderRepository interface {
	// CreateOrder 在同一事务中写入订单、明细、待支付记录和首条状态历史
	CreateOrder(ctx context.Context, order *model.Order, payment *model.Payment) error
	GetOrderByID(ctx context.Context, id int) (*model.Order, error)
	GetOrderByCode(ctx context.Context, code string) (*model.Order, error)
	GetOrderByCompactCode(ctx context.Context, compact string) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID int) ([]*model.Order, error)
	GetStatusHistory(ctx context.Context, orderID int) ([]*model.OrderStatusHistory, error)
	// ConfirmOrder pending -> confirmed 的比较并交换。applied 为 false 时 current 为订单当前状态，
	// 订单不存在时 current 为空。
	ConfirmOrder(ctx context.Context, c *model.Confirmation) (applied bool, current model.OrderStatus, err error)
	// UpdateOrderStatus from -> to 的比较并交换，成功时追加状态历史
	UpdateOrderStatus(ctx context.Context, orderID int, from, to model.OrderStatus, note string) (bool, error)
	CountOrdersByStatus(ctx context.Context) (map[model.OrderStatus]int, error)
}
