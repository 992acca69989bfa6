package interfaces

import (
	"context"

	"travel-booking-backend/internal/model"

	"github.com/shopspring/decimal"
)

type PaymentRepository interface {
	GetPaymentsByOrder(ctx context.Context, orderID int) ([]*model.Payment, error)
	SumPaidAmount(ctx context.Context) (decimal.Decimal, error)
	CreateRefundRequest(ctx context.Context, request *model.RefundRequest) error
	// GetRefundStatus 返回订单最近一条退款申请，没有时返回 nil, nil
	GetRefundStatus(ctx context.Context, orderID int) (*model.RefundRequest, error)
	CountRefundRequests(ctx context.Context) (int, error)
}
