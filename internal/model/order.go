package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemType 可预订商品类型
type ItemType string

const (
	ItemTour          ItemType = "tour"
	ItemAccommodation ItemType = "accommodation"
	ItemVehicle       ItemType = "vehicle"
	ItemTicket        ItemType = "ticket"
)

func (t ItemType) Valid() bool {
	switch t {
	case ItemTour, ItemAccommodation, ItemVehicle, ItemTicket:
		return true
	}
	return false
}

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
)

// orderTransitions 订单状态机，key 为当前状态
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderConfirmed, OrderCancelled, OrderRefunded},
	OrderConfirmed:  {OrderProcessing, OrderCompleted, OrderRefunded},
	OrderProcessing: {OrderCompleted, OrderRefunded},
}

// CanTransition 判断 from -> to 是否合法
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal 终态不允许再迁移
func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled || s == OrderRefunded
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderProcessing, OrderCompleted, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

// Payment methods accepted at checkout.
const (
	PaymentMethodMoMo         = "momo"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCash         = "cash"
	PaymentMethodDemo         = "demo"
)

// Order 订单模型
type Order struct {
	ID                   int             `json:"id"`
	OrderCode            string          `json:"order_code"`
	OrderCodeCompact     string          `json:"-"`
	UserID               int             `json:"user_id"`
	OrderType            ItemType        `json:"order_type"`
	ItemID               int             `json:"id_item"`
	Status               OrderStatus     `json:"status"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	Currency             string          `json:"currency"`
	PaymentMethod        string          `json:"payment_method"`
	PaymentTransactionID *string         `json:"payment_transaction_id,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	Detail               Detail          `json:"details,omitempty"`
	Payments             []*Payment      `json:"payments,omitempty"`
}

// OrderStatusHistory 订单状态变更审计记录，只追加
type OrderStatusHistory struct {
	ID         int         `json:"id"`
	OrderID    int         `json:"order_id"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status"`
	Note       string      `json:"note,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}
