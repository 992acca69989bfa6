package service

import (
	"context"
	stderrors "errors"

	"travel-booking-backend/internal/errors"
	"travel-booking-backend/internal/model"
	"travel-booking-backend/internal/ordercode"
	"travel-booking-backend/internal/pricing"
	"travel-booking-backend/internal/repository/interfaces"
	"travel-booking-backend/internal/util"

	"go.uber.org/zap"
)

// 订单编号冲突时最多重新生成的次数
const maxOrderCodeAttempts = 3

// OrderServiceInterface 订单相关的业务逻辑
type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, userID int, input *CreateOrderInput) (*model.Order, error)
	GetOrder(ctx context.Context, userID, orderID int) (*model.Order, error)
	ListOrders(ctx context.Context, userID int) ([]*model.Order, error)
	CancelOrder(ctx context.Context, userID, orderID int) error
	GetHistory(ctx context.Context, userID, orderID int) ([]*model.OrderStatusHistory, error)
}

// CreateOrderInput 下单参数，Detail 已按 ItemType 解析
type CreateOrderInput struct {
	ItemID        int
	ItemType      model.ItemType
	PaymentMethod string
	Detail        model.Detail
}

type OrderService struct {
	orderRepo   interfaces.OrderRepository
	catalogRepo interfaces.CatalogRepository
	paymentRepo interfaces.PaymentRepository
	currency    string
	codePrefix  string
}

// NewOrderService 创建一个新的 OrderService 实例
func NewOrderService(
	orderRepo interfaces.OrderRepository,
	catalogRepo interfaces.CatalogRepository,
	paymentRepo interfaces.PaymentRepository,
	currency, codePrefix string,
) *OrderService {
	if codePrefix == "" {
		codePrefix = ordercode.DefaultPrefix
	}
	return &OrderService{
		orderRepo:   orderRepo,
		catalogRepo: catalogRepo,
		paymentRepo: paymentRepo,
		currency:    currency,
		codePrefix:  codePrefix,
	}
}

func validPaymentMethod(method string) bool {
	switch method {
	case model.PaymentMethodMoMo, model.PaymentMethodBankTransfer, model.PaymentMethodCash, model.PaymentMethodDemo:
		return true
	}
	return false
}

// CreateOrder 查价、计算总价，然后一次性写入订单、明细和待支付记录
func (s *OrderService) CreateOrder(ctx context.Context, userID int, input *CreateOrderInput) (*model.Order, error) {
	if !input.ItemType.Valid() {
		return nil, errors.New(errors.ErrValidation, "unsupported item_type")
	}
	if input.Detail == nil || input.Detail.ItemType() != input.ItemType {
		return nil, errors.New(errors.ErrValidation, "details do not match item_type")
	}
	if input.PaymentMethod == "" {
		input.PaymentMethod = model.PaymentMethodBankTransfer
	}
	if !validPaymentMethod(input.PaymentMethod) {
		return nil, errors.New(errors.ErrValidation, "unsupported payment_method")
	}

	item, err := s.catalogRepo.GetBasePrice(ctx, input.ItemType, input.ItemID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to read catalog", err)
	}
	if item == nil {
		return nil, errors.New(errors.ErrItemNotFound, "item not found")
	}

	if v, ok := input.Detail.(*model.VehicleDetail); ok && item.SeatCapacity > 0 {
		seats := v.SeatCount
		if seats <= 0 {
			seats = v.Quantity
		}
		if int(pricing.Units(seats)) > item.SeatCapacity {
			return nil, errors.New(errors.ErrSeatUnavailable, "not enough seats on this vehicle")
		}
	}

	input.Detail.SetUnitPrice(item.Price)
	total, err := pricing.Compute(item.Price, input.Detail)
	if err != nil {
		return nil, errors.Wrap(errors.ErrValidation, "invalid booking details", err)
	}

	for attempt := 1; attempt <= maxOrderCodeAttempts; attempt++ {
		code := ordercode.Generate(s.codePrefix)
		order := &model.Order{
			OrderCode:        code,
			OrderCodeCompact: ordercode.Compact(code),
			UserID:           userID,
			OrderType:        input.ItemType,
			ItemID:           input.ItemID,
			Status:           model.OrderPending,
			TotalAmount:      total,
			Currency:         s.currency,
			PaymentMethod:    input.PaymentMethod,
			Detail:           input.Detail,
		}
		payment := &model.Payment{
			Status: model.PaymentPending,
			Amount: total,
			Method: input.PaymentMethod,
		}

		err = s.orderRepo.CreateOrder(ctx, order, payment)
		switch {
		case err == nil:
			util.Logger.Info("订单创建成功",
				zap.Int("order_id", order.ID),
				zap.String("order_code", order.OrderCode),
				zap.String("total_amount", total.String()))
			return order, nil
		case stderrors.Is(err, interfaces.ErrOrderCodeTaken):
			util.Logger.Warn("订单编号冲突，重新生成", zap.Int("attempt", attempt))
			continue
		case stderrors.Is(err, interfaces.ErrSeatTaken):
			return nil, errors.Wrap(errors.ErrSeatUnavailable, "seat already booked", err)
		default:
			return nil, errors.Wrap(errors.ErrDatabase, "failed to create order", err)
		}
	}
	return nil, errors.Wrap(errors.ErrResourceConflict, "could not allocate order code", err)
}

// loadOwnedOrder 读取订单并校验归属
func loadOwnedOrder(ctx context.Context, repo interfaces.OrderRepository, userID, orderID int) (*model.Order, error) {
	order, err := repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to load order", err)
	}
	if order == nil {
		return nil, errors.New(errors.ErrOrderNotFound, "order not found")
	}
	if order.UserID != userID {
		util.Logger.Warn("访问他人订单被拒绝",
			zap.Int("order_id", orderID),
			zap.Int("user_id", userID))
		return nil, errors.New(errors.ErrForbidden, "order belongs to another user")
	}
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, userID, orderID int) (*model.Order, error) {
	order, err := loadOwnedOrder(ctx, s.orderRepo, userID, orderID)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.GetPaymentsByOrder(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to load payments", err)
	}
	order.Payments = payments
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID int) ([]*model.Order, error) {
	orders, err := s.orderRepo.GetOrdersByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to list orders", err)
	}
	if orders == nil {
		orders = []*model.Order{}
	}
	return orders, nil
}

// CancelOrder 只有 pending 订单可以取消
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID int) error {
	order, err := loadOwnedOrder(ctx, s.orderRepo, userID, orderID)
	if err != nil {
		return err
	}
	if !model.CanTransition(order.Status, model.OrderCancelled) {
		return errors.New(errors.ErrInvalidTransition, "only pending orders can be cancelled")
	}

	ok, err := s.orderRepo.UpdateOrderStatus(ctx, orderID, order.Status, model.OrderCancelled, "cancelled by customer")
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "failed to cancel order", err)
	}
	if !ok {
		// 读取之后状态已被其他请求改变
		return errors.New(errors.ErrInvalidTransition, "order status changed, cancel rejected")
	}

	util.Logger.Info("订单已取消", zap.Int("order_id", orderID), zap.Int("user_id", userID))
	return nil
}

func (s *OrderService) GetHistory(ctx context.Context, userID, orderID int) ([]*model.OrderStatusHistory, error) {
	if _, err := loadOwnedOrder(ctx, s.orderRepo, userID, orderID); err != nil {
		return nil, err
	}
	history, err := s.orderRepo.GetStatusHistory(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to load status history", err)
	}
	if history == nil {
		history = []*model.OrderStatusHistory{}
	}
	return history, nil
}
