package service

import (
	"context"
	"fmt"

	"travel-booking-backend/internal/errors"
	"travel-booking-backend/internal/model"
	"travel-booking-backend/internal/repository/interfaces"
	"travel-booking-backend/internal/util"

	"go.uber.org/zap"
)

// AdminServiceInterface 后台订单管理
type AdminServiceInterface interface {
	GetOrder(ctx context.Context, orderID int) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int, to model.OrderStatus, note string) (*model.Order, error)
	GetSystemStats(ctx context.Context) (*model.SystemStats, error)
}

// AdminService 按功能模块组织业务逻辑
type AdminService struct {
	orderRepo   interfaces.OrderRepository
	paymentRepo interfaces.PaymentRepository
	stats       *StatsService
}

// NewAdminService 创建一个新的 AdminService 实例
func NewAdminService(orderRepo interfaces.OrderRepository, paymentRepo interfaces.PaymentRepository) *AdminService {
	return &AdminService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		stats:       NewStatsService(orderRepo, paymentRepo),
	}
}

// 订单管理
func (s *AdminService) GetOrder(ctx context.Context, orderID int) (*model.Order, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to load order", err)
	}
	if order == nil {
		return nil, errors.New(errors.ErrOrderNotFound, "order not found")
	}
	payments, err := s.paymentRepo.GetPaymentsByOrder(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to load payments", err)
	}
	order.Payments = payments
	return order, nil
}

// UpdateOrderStatus 按状态机推进订单。确认支付走 AdminConfirm，这里不允许直接改为 confirmed。
func (s *AdminService) UpdateOrderStatus(ctx context.Context, orderID int, to model.OrderStatus, note string) (*model.Order, error) {
	if !to.Valid() {
		return nil, errors.New(errors.ErrValidation, "unknown status")
	}
	if to == model.OrderConfirmed {
		return nil, errors.New(errors.ErrValidation, "use the confirm endpoint to record a payment")
	}

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := order.Status
	if !model.CanTransition(from, to) {
		return nil, errors.New(errors.ErrInvalidTransition,
			fmt.Sprintf("cannot move order from %s to %s", from, to))
	}

	if note == "" {
		note = "admin"
	}
	ok, err := s.orderRepo.UpdateOrderStatus(ctx, orderID, from, to, note)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to update order status", err)
	}
	if !ok {
		return nil, errors.New(errors.ErrInvalidTransition, "order status changed concurrently")
	}

	util.Logger.Info("后台更新订单状态",
		zap.Int("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return s.GetOrder(ctx, orderID)
}

func (s *AdminService) GetSystemStats(ctx context.Context) (*model.SystemStats, error) {
	return s.stats.GetSystemStats(ctx)
}
