package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus 支付记录状态
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Payment 支付记录，一个订单可以有多条，但最多一条 paid
type Payment struct {
	ID             int             `json:"id"`
	OrderID        int             `json:"order_id"`
	Status         PaymentStatus   `json:"status"`
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method"`
	TransactionRef *string         `json:"transaction_ref,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Confirmation 一次支付确认事件，三种入口最终都归结为它
type Confirmation struct {
	OrderID       int
	TransactionID string
	Method        string
	Source        string
	PaidAt        time.Time
}

// Confirmation sources.
const (
	SourceManual  = "manual"
	SourceGateway = "momo"
	SourceWebhook = "bank_webhook"
)

// RefundRequest 退款申请。目前只有创建，没有审批状态机。
type RefundRequest struct {
	ID        int             `json:"id"`
	OrderID   int             `json:"order_id"`
	UserID    int             `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// RefundRequested 退款申请创建后的唯一状态
const RefundRequested = "requested"
