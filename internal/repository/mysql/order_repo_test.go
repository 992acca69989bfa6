package mysql

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"travel-booking-backend/internal/model"
	"travel-booking-backend/internal/repository/interfaces"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogRepository_GetBasePrice(t *testing.T) {
	db := newTestDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	item, err := repo.GetBasePrice(ctx, model.ItemAccommodation, 1)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, model.ItemAccommodation, item.Type)
	assert.True(t, item.Price.Equal(decimal.RequireFromString("800000.5")))

	vehicle, err := repo.GetBasePrice(ctx, model.ItemVehicle, 1)
	require.NoError(t, err)
	assert.Equal(t, 40, vehicle.SeatCapacity)

	missing, err := repo.GetBasePrice(ctx, model.ItemTicket, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.GetBasePrice(ctx, model.ItemType("cruise"), 1)
	assert.Error(t, err)
}

func TestOrderRepository_CreateAndLookup(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order, payment := newTourOrder("ORD-1A2B3C4D", 7, 3000000)
	require.NoError(t, repo.CreateOrder(ctx, order, payment))
	assert.NotZero(t, order.ID)
	assert.NotZero(t, payment.ID)
	assert.Equal(t, model.OrderPending, order.Status)

	byID, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "ORD-1A2B3C4D", byID.OrderCode)
	assert.True(t, byID.TotalAmount.Equal(decimal.NewFromInt(3000000)))
	assert.Nil(t, byID.PaymentTransactionID)

	detail, ok := byID.Detail.(*model.TourDetail)
	require.True(t, ok)
	assert.Equal(t, 2, detail.Quantity)
	assert.Equal(t, "2026-11-01", detail.BookingDate)
	assert.Equal(t, "2 adults", detail.GuestInfo)
	assert.True(t, detail.UnitPrice.Equal(decimal.NewFromInt(1500000)))

	byCode, err := repo.GetOrderByCode(ctx, "ORD-1A2B3C4D")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byCode.ID)

	byCompact, err := repo.GetOrderByCompactCode(ctx, "ORD1A2B3C4D")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byCompact.ID)

	missing, err := repo.GetOrderByCode(ctx, "ORD-FFFFFFFF")
	require.NoError(t, err)
	assert.Nil(t, missing)

	history, err := repo.GetStatusHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.OrderStatus(""), history[0].FromStatus)
	assert.Equal(t, model.OrderPending, history[0].ToStatus)

	payments, err := NewPaymentRepository(db).GetPaymentsByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, model.PaymentPending, payments[0].Status)
	assert.Nil(t, payments[0].PaidAt)
}

func TestOrderRepository_CreateAccommodationDetail(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	room := 12
	order := &model.Order{
		OrderCode:        "ORD-0000AAAA",
		OrderCodeCompact: "ORD0000AAAA",
		UserID:           7,
		OrderType:        model.ItemAccommodation,
		ItemID:           1,
		TotalAmount:      decimal.RequireFromString("4800003"),
		Currency:         "VND",
		PaymentMethod:    model.PaymentMethodMoMo,
		Detail: &model.AccommodationDetail{
			RoomID:    &room,
			StartDate: "2026-12-01",
			EndDate:   "2026-12-04",
			Quantity:  2,
			Nights:    3,
			UnitPrice: decimal.RequireFromString("800000.5"),
		},
	}
	require.NoError(t, repo.CreateOrder(ctx, order, &model.Payment{Amount: order.TotalAmount, Method: order.PaymentMethod}))

	got, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	d, ok := got.Detail.(*model.AccommodationDetail)
	require.True(t, ok)
	require.NotNil(t, d.RoomID)
	assert.Equal(t, 12, *d.RoomID)
	assert.Equal(t, "2026-12-01", d.StartDate)
	assert.Equal(t, "2026-12-04", d.EndDate)
	assert.Equal(t, 3, d.Nights)
	assert.True(t, d.UnitPrice.Equal(decimal.RequireFromString("800000.5")))
}

func TestOrderRepository_DuplicateCode(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	first, p1 := newTourOrder("ORD-DEADBEEF", 7, 100)
	require.NoError(t, repo.CreateOrder(ctx, first, p1))

	second, p2 := newTourOrder("ORD-DEADBEEF", 8, 100)
	err := repo.CreateOrder(ctx, second, p2)
	assert.ErrorIs(t, err, interfaces.ErrOrderCodeTaken)

	orders, err := repo.GetOrdersByUser(ctx, 8)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderRepository_SeatHold(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	newVehicleOrder := func(code string) *model.Order {
		return &model.Order{
			OrderCode:        code,
			OrderCodeCompact: code[:3] + code[4:],
			UserID:           7,
			OrderType:        model.ItemVehicle,
			ItemID:           1,
			TotalAmount:      decimal.NewFromInt(350000),
			Currency:         "VND",
			PaymentMethod:    model.PaymentMethodCash,
			Detail: &model.VehicleDetail{
				SeatPosition: "A1",
				Quantity:     1,
				Origin:       "Ha Noi",
				Destination:  "Sa Pa",
				UnitPrice:    decimal.NewFromInt(350000),
			},
		}
	}

	first := newVehicleOrder("ORD-00000001")
	require.NoError(t, repo.CreateOrder(ctx, first, &model.Payment{Amount: first.TotalAmount, Method: "cash"}))

	second := newVehicleOrder("ORD-00000002")
	err := repo.CreateOrder(ctx, second, &model.Payment{Amount: second.TotalAmount, Method: "cash"})
	assert.ErrorIs(t, err, interfaces.ErrSeatTaken)

	ok, err := repo.UpdateOrderStatus(ctx, first.ID, model.OrderPending, model.OrderCancelled, "customer cancelled")
	require.NoError(t, err)
	assert.True(t, ok)

	third := newVehicleOrder("ORD-00000003")
	assert.NoError(t, repo.CreateOrder(ctx, third, &model.Payment{Amount: third.TotalAmount, Method: "cash"}))
}

func TestOrderRepository_ConfirmIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	payments := NewPaymentRepository(db)
	ctx := context.Background()

	order, payment := newTourOrder("ORD-CAFEBABE", 7, 500000)
	require.NoError(t, repo.CreateOrder(ctx, order, payment))

	paidAt := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	applied, current, err := repo.ConfirmOrder(ctx, &model.Confirmation{
		OrderID: order.ID, TransactionID: "FT001", Method: model.PaymentMethodBankTransfer,
		Source: model.SourceWebhook, PaidAt: paidAt,
	})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, model.OrderConfirmed, current)

	applied, current, err = repo.ConfirmOrder(ctx, &model.Confirmation{
		OrderID: order.ID, TransactionID: "FT002", Method: model.PaymentMethodBankTransfer,
		Source: model.SourceWebhook,
	})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, model.OrderConfirmed, current)

	got, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderConfirmed, got.Status)
	require.NotNil(t, got.PaymentTransactionID)
	assert.Equal(t, "FT001", *got.PaymentTransactionID)

	list, err := payments.GetPaymentsByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.PaymentPaid, list[0].Status)
	require.NotNil(t, list[0].TransactionRef)
	assert.Equal(t, "FT001", *list[0].TransactionRef)
	require.NotNil(t, list[0].PaidAt)
	assert.True(t, list[0].PaidAt.Equal(paidAt))

	history, err := repo.GetStatusHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.OrderPending, history[1].FromStatus)
	assert.Equal(t, model.OrderConfirmed, history[1].ToStatus)
	assert.Contains(t, history[1].Note, "FT001")
}

func TestOrderRepository_ConfirmMissingOrder(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))

	applied, current, err := repo.ConfirmOrder(context.Background(), &model.Confirmation{OrderID: 404, TransactionID: "X"})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, model.OrderStatus(""), current)
}

func TestOrderRepository_ConfirmCancelledOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order, payment := newTourOrder("ORD-0BADF00D", 7, 100000)
	require.NoError(t, repo.CreateOrder(ctx, order, payment))
	ok, err := repo.UpdateOrderStatus(ctx, order.ID, model.OrderPending, model.OrderCancelled, "")
	require.NoError(t, err)
	require.True(t, ok)

	applied, current, err := repo.ConfirmOrder(ctx, &model.Confirmation{OrderID: order.ID, TransactionID: "late"})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, model.OrderCancelled, current)

	list, err := NewPaymentRepository(db).GetPaymentsByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.PaymentFailed, list[0].Status)
}

func TestOrderRepository_ConfirmWithoutPendingPayment(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order, payment := newTourOrder("ORD-12345678", 7, 900000)
	require.NoError(t, repo.CreateOrder(ctx, order, payment))
	_, err := db.Exec(`UPDATE payments SET status = 'failed' WHERE order_id = ?`, order.ID)
	require.NoError(t, err)

	applied, _, err := repo.ConfirmOrder(ctx, &model.Confirmation{
		OrderID: order.ID, TransactionID: "MOMO-1", Method: model.PaymentMethodMoMo, Source: model.SourceGateway,
	})
	require.NoError(t, err)
	assert.True(t, applied)

	list, err := NewPaymentRepository(db).GetPaymentsByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, model.PaymentPaid, list[1].Status)
	assert.True(t, list[1].Amount.Equal(decimal.NewFromInt(900000)))
	assert.Equal(t, model.PaymentMethodMoMo, list[1].Method)
}

func TestOrderRepository_ConcurrentConfirm(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order, payment := newTourOrder("ORD-77777777", 7, 200000)
	require.NoError(t, repo.CreateOrder(ctx, order, payment))

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	appliedCount := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			applied, _, err := repo.ConfirmOrder(ctx, &model.Confirmation{
				OrderID: order.ID, TransactionID: fmt.Sprintf("TX-%d", i),
				Method: model.PaymentMethodBankTransfer, Source: model.SourceWebhook,
			})
			assert.NoError(t, err)
			if applied {
				mu.Lock()
				appliedCount++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, appliedCount)

	var paid int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM payments WHERE order_id = ? AND status = 'paid'`, order.ID).Scan(&paid))
	assert.Equal(t, 1, paid)

	history, err := repo.GetStatusHistory(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestOrderRepository_UpdateStatusCAS(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order, payment := newTourOrder("ORD-AAAA0001", 7, 100000)
	require.NoError(t, repo.CreateOrder(ctx, order, payment))

	ok, err := repo.UpdateOrderStatus(ctx, order.ID, model.OrderConfirmed, model.OrderProcessing, "")
	require.NoError(t, err)
	assert.False(t, ok, "stale from status must not apply")

	_, _, err = repo.ConfirmOrder(ctx, &model.Confirmation{OrderID: order.ID, TransactionID: "T1", Method: "cash", Source: model.SourceManual})
	require.NoError(t, err)

	ok, err = repo.UpdateOrderStatus(ctx, order.ID, model.OrderConfirmed, model.OrderRefunded, "admin refund")
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := NewPaymentRepository(db).GetPaymentsByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.PaymentRefunded, list[0].Status)

	history, err := repo.GetStatusHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "admin refund", history[2].Note)
}

func TestOrderRepository_SnapshotSurvivesCatalogChange(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order, payment := newTourOrder("ORD-5NAP5H07", 7, 3000000)
	require.NoError(t, repo.CreateOrder(ctx, order, payment))

	_, err := db.Exec(`UPDATE tours SET price = 9999999 WHERE id = 1`)
	require.NoError(t, err)

	got, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(3000000)))
	assert.True(t, got.Detail.UnitPriceSnapshot().Equal(decimal.NewFromInt(1500000)))
}

func TestOrderRepository_ListAndCount(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	for i, code := range []string{"ORD-0000000A", "ORD-0000000B", "ORD-0000000C"} {
		order, payment := newTourOrder(code, 7, int64(100000*(i+1)))
		require.NoError(t, repo.CreateOrder(ctx, order, payment))
	}
	other, payment := newTourOrder("ORD-0000000D", 9, 100000)
	require.NoError(t, repo.CreateOrder(ctx, other, payment))
	_, err := repo.UpdateOrderStatus(ctx, other.ID, model.OrderPending, model.OrderCancelled, "")
	require.NoError(t, err)

	orders, err := repo.GetOrdersByUser(ctx, 7)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	for _, o := range orders {
		assert.Equal(t, 7, o.UserID)
		assert.NotNil(t, o.Detail)
	}

	counts, err := repo.CountOrdersByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[model.OrderPending])
	assert.Equal(t, 1, counts[model.OrderCancelled])
}
