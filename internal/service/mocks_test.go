package service

import (
	"context"
	"sync"
	"time"

	"travel-booking-backend/internal/gateway/momo"
	"travel-booking-backend/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository 是 OrderRepository 接口的模拟实现
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, order *model.Order, payment *model.Payment) error {
	args := m.Called(ctx, order, payment)
	return args.Error(0)
}

func (m *MockOrderRepository) GetOrderByID(ctx context.Context, id int) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetOrderByCode(ctx context.Context, code string) (*model.Order, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetOrderByCompactCode(ctx context.Context, compact string) (*model.Order, error) {
	args := m.Called(ctx, compact)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetOrdersByUser(ctx context.Context, userID int) ([]*model.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetStatusHistory(ctx context.Context, orderID int) ([]*model.OrderStatusHistory, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OrderStatusHistory), args.Error(1)
}

func (m *MockOrderRepository) ConfirmOrder(ctx context.Context, c *model.Confirmation) (bool, model.OrderStatus, error) {
	args := m.Called(ctx, c)
	return args.Bool(0), args.Get(1).(model.OrderStatus), args.Error(2)
}

func (m *MockOrderRepository) UpdateOrderStatus(ctx context.Context, orderID int, from, to model.OrderStatus, note string) (bool, error) {
	args := m.Called(ctx, orderID, from, to, note)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) CountOrdersByStatus(ctx context.Context) (map[model.OrderStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[model.OrderStatus]int), args.Error(1)
}

// MockCatalogRepository 是 CatalogRepository 接口的模拟实现
type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) GetBasePrice(ctx context.Context, itemType model.ItemType, itemID int) (*model.CatalogItem, error) {
	args := m.Called(ctx, itemType, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CatalogItem), args.Error(1)
}

// MockPaymentRepository 是 PaymentRepository 接口的模拟实现
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) GetPaymentsByOrder(ctx context.Context, orderID int) ([]*model.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) SumPaidAmount(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPaymentRepository) CreateRefundRequest(ctx context.Context, request *model.RefundRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetRefundStatus(ctx context.Context, orderID int) (*model.RefundRequest, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RefundRequest), args.Error(1)
}

func (m *MockPaymentRepository) CountRefundRequests(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockUserRepository 是 UserRepository 接口的模拟实现
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetContact(ctx context.Context, userID int) (*model.UserContact, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserContact), args.Error(1)
}

// MockGateway 钱包网关的模拟实现
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreatePayment(ctx context.Context, orderCode string, amount decimal.Decimal, description string) (string, error) {
	args := m.Called(ctx, orderCode, amount, description)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) VerifyCallback(cb *momo.Callback) bool {
	args := m.Called(cb)
	return args.Bool(0)
}

// MockNotifier 记录收到的通知
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendOrderConfirmation(order *model.Order) {
	m.Called(order)
}

// memoryGuard 内存版去重记录
type memoryGuard struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{keys: make(map[string]bool)}
}

func (g *memoryGuard) Seen(ctx context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.keys[key], nil
}

func (g *memoryGuard) Mark(ctx context.Context, key string, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keys[key] = true
	return nil
}

// memoryArchive 内存版归档，done 在每次写入后收到 key
type memoryArchive struct {
	done chan string
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{done: make(chan string, 8)}
}

func (a *memoryArchive) Put(ctx context.Context, key string, body []byte) (string, error) {
	a.done <- key
	return key, nil
}
