package service

import (
	"context"

	"travel-booking-backend/internal/errors"
	"travel-booking-backend/internal/model"
	"travel-booking-backend/internal/repository/interfaces"
	"travel-booking-backend/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RefundServiceInterface 退款申请
type RefundServiceInterface interface {
	RequestRefund(ctx context.Context, userID, orderID int, amount decimal.Decimal, reason string) (*model.RefundRequest, error)
	GetRefundStatus(ctx context.Context, userID, orderID int) (*model.RefundRequest, error)
}

type RefundService struct {
	orderRepo   interfaces.OrderRepository
	paymentRepo interfaces.PaymentRepository
}

func NewRefundService(orderRepo interfaces.OrderRepository, paymentRepo interfaces.PaymentRepository) *RefundService {
	return &RefundService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
	}
}

// refundable 已付款的订单才能申请退款
func refundable(status model.OrderStatus) bool {
	switch status {
	case model.OrderConfirmed, model.OrderProcessing, model.OrderCompleted:
		return true
	}
	return false
}

// RequestRefund 申请退款，只登记申请，不改变订单状态
func (s *RefundService) RequestRefund(ctx context.Context, userID, orderID int, amount decimal.Decimal, reason string) (*model.RefundRequest, error) {
	order, err := loadOwnedOrder(ctx, s.orderRepo, userID, orderID)
	if err != nil {
		return nil, err
	}

	if !refundable(order.Status) {
		return nil, errors.New(errors.ErrInvalidTransition, "only paid orders can request a refund")
	}
	if !amount.IsPositive() || amount.GreaterThan(order.TotalAmount) {
		return nil, errors.New(errors.ErrValidation, "refund amount must be greater than 0 and not exceed the order total")
	}

	// 检查是否已经存在退款申请
	existing, err := s.paymentRepo.GetRefundStatus(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to check refund requests", err)
	}
	if existing != nil {
		return nil, errors.New(errors.ErrRefundExists, "a refund request already exists for this order, status: "+existing.Status)
	}

	request := &model.RefundRequest{
		OrderID: orderID,
		UserID:  userID,
		Amount:  amount,
		Reason:  reason,
		Status:  model.RefundRequested,
	}
	if err := s.paymentRepo.CreateRefundRequest(ctx, request); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to create refund request", err)
	}

	util.Logger.Info("退款申请已登记",
		zap.Int("order_id", orderID),
		zap.Int("refund_id", request.ID),
		zap.String("amount", amount.String()))
	return request, nil
}

// GetRefundStatus 查询订单最近的退款申请
func (s *RefundService) GetRefundStatus(ctx context.Context, userID, orderID int) (*model.RefundRequest, error) {
	if _, err := loadOwnedOrder(ctx, s.orderRepo, userID, orderID); err != nil {
		return nil, err
	}
	request, err := s.paymentRepo.GetRefundStatus(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to load refund request", err)
	}
	if request == nil {
		return nil, errors.New(errors.ErrResourceNotFound, "no refund request for this order")
	}
	return request, nil
}
