package service

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"travel-booking-backend/internal/errors"
	"travel-booking-backend/internal/gateway/momo"
	"travel-booking-backend/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func pendingOrder() *model.Order {
	return &model.Order{
		ID:               11,
		OrderCode:        "ORD-AB12CD34",
		OrderCodeCompact: "ORDAB12CD34",
		UserID:           7,
		OrderType:        model.ItemTour,
		Status:           model.OrderPending,
		TotalAmount:      decimal.NewFromInt(500000),
		Currency:         "VND",
		PaymentMethod:    model.PaymentMethodBankTransfer,
	}
}

func confirmationFor(orderID int, source string) interface{} {
	return mock.MatchedBy(func(c *model.Confirmation) bool {
		return c.OrderID == orderID && c.Source == source && c.TransactionID != ""
	})
}

// TestHandleBankWebhook_AmountGuard 少付不改动订单，足额或多付都能确认
func TestHandleBankWebhook_AmountGuard(t *testing.T) {
	cases := []struct {
		amount  int64
		confirm bool
	}{
		{499999, false},
		{500000, true},
		{600000, true},
	}

	for _, tc := range cases {
		orderRepo := new(MockOrderRepository)
		svc := NewPaymentService(orderRepo, PaymentOptions{})
		ctx := context.Background()

		orderRepo.On("GetOrderByCompactCode", ctx, "ORDAB12CD34").Return(pendingOrder(), nil)
		orderRepo.On("ConfirmOrder", ctx, confirmationFor(11, model.SourceWebhook)).Return(true, model.OrderConfirmed, nil)

		result, err := svc.HandleBankWebhook(ctx, &WebhookInput{
			Content:       "chuyen tien ORD-AB12CD34",
			Amount:        decimal.NewFromInt(tc.amount),
			TransactionID: "FT001",
		})

		if tc.confirm {
			require.NoError(t, err, "amount %d", tc.amount)
			assert.True(t, result.Applied)
			assert.Equal(t, model.OrderConfirmed, result.Status)
			orderRepo.AssertNumberOfCalls(t, "ConfirmOrder", 1)
		} else {
			assert.True(t, errors.HasCode(err, errors.ErrInsufficientAmount), "amount %d", tc.amount)
			orderRepo.AssertNotCalled(t, "ConfirmOrder", mock.Anything, mock.Anything)
		}
	}
}

func TestHandleBankWebhook_CodeNormalization(t *testing.T) {
	contents := []string{
		"chuyen tien ORDAB12CD34 tks",
		"ORD-AB12CD34",
		"thanh toan ord ab12cd34",
	}

	for _, content := range contents {
		t.Run(content, func(t *testing.T) {
			orderRepo := new(MockOrderRepository)
			svc := NewPaymentService(orderRepo, PaymentOptions{})
			ctx := context.Background()

			orderRepo.On("GetOrderByCompactCode", ctx, "ORDAB12CD34").Return(pendingOrder(), nil)
			orderRepo.On("ConfirmOrder", ctx, mock.Anything).Return(true, model.OrderConfirmed, nil)

			result, err := svc.HandleBankWebhook(ctx, &WebhookInput{Content: content, Amount: decimal.NewFromInt(500000)})
			require.NoError(t, err)
			assert.Equal(t, "ORD-AB12CD34", result.OrderCode)
		})
	}
}

func TestHandleBankWebhook_LiteralFallback(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	svc := NewPaymentService(orderRepo, PaymentOptions{})
	ctx := context.Background()

	order := pendingOrder()
	order.OrderCode = "LEGACY-2024-0001"
	orderRepo.On("GetOrderByCode", ctx, "LEGACY-2024-0001").Return(order, nil)
	orderRepo.On("ConfirmOrder", ctx, mock.Anything).Return(true, model.OrderConfirmed, nil)

	result, err := svc.HandleBankWebhook(ctx, &WebhookInput{Content: "  LEGACY-2024-0001 ", Amount: decimal.NewFromInt(500000)})
	require.NoError(t, err)
	assert.True(t, result.Applied)
	orderRepo.AssertNotCalled(t, "GetOrderByCompactCode", mock.Anything, mock.Anything)
}

func TestHandleBankWebhook_NotFound(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	svc := NewPaymentService(orderRepo, PaymentOptions{})
	ctx := context.Background()

	orderRepo.On("GetOrderByCompactCode", ctx, "ORDFFFFFFFF").Return(nil, nil)
	orderRepo.On("GetOrderByCode", ctx, "ORD-FFFFFFFF").Return(nil, nil)

	_, err := svc.HandleBankWebhook(ctx, &WebhookInput{Content: "ORD-FFFFFFFF", Amount: decimal.NewFromInt(500000)})
	assert.True(t, errors.HasCode(err, errors.ErrOrderNotFound))
	orderRepo.AssertNotCalled(t, "ConfirmOrder", mock.Anything, mock.Anything)
}

func TestHandleBankWebhook_SyntheticTransactionID(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	svc := NewPaymentService(orderRepo, PaymentOptions{})
	ctx := context.Background()

	orderRepo.On("GetOrderByCompactCode", ctx, "ORDAB12CD34").Return(pendingOrder(), nil)
	orderRepo.On("ConfirmOrder", ctx, mock.MatchedBy(func(c *model.Confirmation) bool {
		return strings.HasPrefix(c.TransactionID, "WEBHOOK-") && c.Method == model.PaymentMethodBankTransfer
	})).Return(true, model.OrderConfirmed, nil)

	_, err := svc.HandleBankWebhook(ctx, &WebhookInput{Content: "ORDAB12CD34", Amount: decimal.NewFromInt(500000)})
	require.NoError(t, err)
	orderRepo.AssertExpectations(t)
}

// TestHandleBankWebhook_Idempotent 订单已确认时重复通知是无操作
func TestHandleBankWebhook_Idempotent(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	notifier := new(MockNotifier)
	svc := NewPaymentService(orderRepo, PaymentOptions{Notifier: notifier})
	ctx := context.Background()

	orderRepo.On("GetOrderByCompactCode", ctx, "ORDAB12CD34").Return(pendingOrder(), nil)
	orderRepo.On("ConfirmOrder", ctx, mock.Anything).Return(false, model.OrderConfirmed, nil)

	result, err := svc.HandleBankWebhook(ctx, &WebhookInput{Content: "ORDAB12CD34", Amount: decimal.NewFromInt(500000), TransactionID: "FT002"})
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Equal(t, model.OrderConfirmed, result.Status)
	notifier.AssertNotCalled(t, "SendOrderConfirmation", mock.Anything)
}

func TestHandleBankWebhook_CancelledOrder(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	svc := NewPaymentService(orderRepo, PaymentOptions{})
	ctx := context.Background()

	orderRepo.On("GetOrderByCompactCode", ctx, "ORDAB12CD34").Return(pendingOrder(), nil)
	orderRepo.On("ConfirmOrder", ctx, mock.Anything).Return(false, model.OrderCancelled, nil)

	_, err := svc.HandleBankWebhook(ctx, &WebhookInput{Content: "ORDAB12CD34", Amount: decimal.NewFromInt(500000)})
	assert.True(t, errors.HasCode(err, errors.ErrInvalidTransition))
}

func TestHandleBankWebhook_ReplayGuardAndArchive(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	notifier := new(MockNotifier)
	archive := newMemoryArchive()
	svc := NewPaymentService(orderRepo, PaymentOptions{
		Guard:    newMemoryGuard(),
		Archive:  archive,
		Notifier: notifier,
	})
	ctx := context.Background()

	orderRepo.On("GetOrderByCompactCode", ctx, "ORDAB12CD34").Return(pendingOrder(), nil).Once()
	orderRepo.On("ConfirmOrder", ctx, mock.Anything).Return(true, model.OrderConfirmed, nil).Once()
	notifier.On("SendOrderConfirmation", mock.AnythingOfType("*model.Order")).Once()

	in := &WebhookInput{
		Content:       "ORD-AB12CD34",
		Amount:        decimal.NewFromInt(500000),
		TransactionID: "FT777",
		Raw:           []byte(`{"id":"FT777"}`),
	}
	first, err := svc.HandleBankWebhook(ctx, in)
	require.NoError(t, err)
	assert.True(t, first.Applied)

	second, err := svc.HandleBankWebhook(ctx, in)
	require.NoError(t, err)
	assert.False(t, second.Applied)

	orderRepo.AssertNumberOfCalls(t, "ConfirmOrder", 1)
	notifier.AssertExpectations(t)

	for i := 0; i < 2; i++ {
		select {
		case key := <-archive.done:
			assert.True(t, strings.HasPrefix(key, "evidence/bank_webhook/"))
			assert.Contains(t, key, "ORDAB12CD34")
		case <-time.After(time.Second):
			t.Fatal("evidence was not archived")
		}
	}
}

func newSignedCallback(client *momo.Client, amount int64, resultCode int) *momo.Callback {
	cb := &momo.Callback{
		PartnerCode:  "MOMOTEST",
		OrderID:      "ORD-AB12CD34",
		RequestID:    "ORD-AB12CD34-1",
		Amount:       amount,
		OrderInfo:    "Thanh toan don hang ORD-AB12CD34",
		OrderType:    "momo_wallet",
		TransID:      4088878653,
		ResultCode:   resultCode,
		Message:      "Successful.",
		PayType:      "qr",
		ResponseTime: 1760000000000,
	}
	cb.Signature = client.SignCallback(cb)
	return cb
}

func testMoMoClient() *momo.Client {
	return momo.NewClient(momo.Config{PartnerCode: "MOMOTEST", AccessKey: "access", SecretKey: "secret"})
}

func TestHandleMoMoCallback_Success(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	client := testMoMoClient()
	svc := NewPaymentService(orderRepo, PaymentOptions{Gateway: client})
	ctx := context.Background()

	orderRepo.On("GetOrderByCode", ctx, "ORD-AB12CD34").Return(pendingOrder(), nil)
	orderRepo.On("ConfirmOrder", ctx, mock.MatchedBy(func(c *model.Confirmation) bool {
		return c.TransactionID == "4088878653" && c.Method == model.PaymentMethodMoMo && c.Source == model.SourceGateway
	})).Return(true, model.OrderConfirmed, nil)

	result, err := svc.HandleMoMoCallback(ctx, newSignedCallback(client, 500000, 0), nil)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	orderRepo.AssertExpectations(t)
}

// TestHandleMoMoCallback_Tampered 任一签名字段被改动都不会确认订单
func TestHandleMoMoCallback_Tampered(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	client := testMoMoClient()
	svc := NewPaymentService(orderRepo, PaymentOptions{Gateway: client})
	ctx := context.Background()

	cb := newSignedCallback(client, 500000, 0)
	cb.Amount = 5000000

	_, err := svc.HandleMoMoCallback(ctx, cb, nil)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidSignature))
	assert.Empty(t, orderRepo.Calls)
}

func TestHandleMoMoCallback_NoGatewayRejects(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	svc := NewPaymentService(orderRepo, PaymentOptions{})

	_, err := svc.HandleMoMoCallback(context.Background(), newSignedCallback(testMoMoClient(), 500000, 0), nil)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidSignature))
	assert.Empty(t, orderRepo.Calls)
}

func TestHandleMoMoCallback_NonSuccessIsNoop(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	client := testMoMoClient()
	svc := NewPaymentService(orderRepo, PaymentOptions{Gateway: client})

	result, err := svc.HandleMoMoCallback(context.Background(), newSignedCallback(client, 500000, 1006), nil)
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.Empty(t, orderRepo.Calls)
}

func TestHandleMoMoCallback_InsufficientAmount(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	client := testMoMoClient()
	svc := NewPaymentService(orderRepo, PaymentOptions{Gateway: client})
	ctx := context.Background()

	orderRepo.On("GetOrderByCode", ctx, "ORD-AB12CD34").Return(pendingOrder(), nil)

	_, err := svc.HandleMoMoCallback(ctx, newSignedCallback(client, 499999, 0), nil)
	assert.True(t, errors.HasCode(err, errors.ErrInsufficientAmount))
	orderRepo.AssertNotCalled(t, "ConfirmOrder", mock.Anything, mock.Anything)
}

func TestHandleMoMoCallback_UnknownOrder(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	client := testMoMoClient()
	svc := NewPaymentService(orderRepo, PaymentOptions{Gateway: client})
	ctx := context.Background()

	orderRepo.On("GetOrderByCode", ctx, "ORD-AB12CD34").Return(nil, nil)

	_, err := svc.HandleMoMoCallback(ctx, newSignedCallback(client, 500000, 0), nil)
	assert.True(t, errors.HasCode(err, errors.ErrOrderNotFound))
}

func TestConfirmManual(t *testing.T) {
	ctx := context.Background()

	disabled := NewPaymentService(new(MockOrderRepository), PaymentOptions{})
	_, err := disabled.ConfirmManual(ctx, 7, 11, "cash")
	assert.True(t, errors.HasCode(err, errors.ErrFeatureDisabled))

	orderRepo := new(MockOrderRepository)
	svc := NewPaymentService(orderRepo, PaymentOptions{ManualConfirmEnabled: true})
	orderRepo.On("GetOrderByID", ctx, 11).Return(pendingOrder(), nil)
	orderRepo.On("ConfirmOrder", ctx, mock.MatchedBy(func(c *model.Confirmation) bool {
		return c.Source == model.SourceManual && c.Method == "cash" && strings.HasPrefix(c.TransactionID, "MANUAL-")
	})).Return(true, model.OrderConfirmed, nil)

	result, err := svc.ConfirmManual(ctx, 7, 11, "cash")
	require.NoError(t, err)
	assert.True(t, result.Applied)

	_, err = svc.ConfirmManual(ctx, 8, 11, "cash")
	assert.True(t, errors.HasCode(err, errors.ErrForbidden))
}

func TestAdminConfirmAndConfirmByCode(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	svc := NewPaymentService(orderRepo, PaymentOptions{})
	ctx := context.Background()

	orderRepo.On("GetOrderByID", ctx, 11).Return(pendingOrder(), nil)
	orderRepo.On("GetOrderByCode", ctx, "ordab12cd34").Return(nil, nil)
	orderRepo.On("GetOrderByCompactCode", ctx, "ORDAB12CD34").Return(pendingOrder(), nil)
	orderRepo.On("ConfirmOrder", ctx, mock.MatchedBy(func(c *model.Confirmation) bool {
		return c.TransactionID == "VCB-123" && c.Method == model.PaymentMethodBankTransfer
	})).Return(true, model.OrderConfirmed, nil).Once()
	orderRepo.On("ConfirmOrder", ctx, mock.Anything).Return(false, model.OrderConfirmed, nil).Once()

	result, err := svc.AdminConfirm(ctx, 11, "", "VCB-123")
	require.NoError(t, err)
	assert.True(t, result.Applied)

	result, err = svc.ConfirmByCode(ctx, "ordab12cd34", "cash", "")
	require.NoError(t, err)
	assert.False(t, result.Applied)
}

func TestInitiateMoMo(t *testing.T) {
	ctx := context.Background()

	noGateway := NewPaymentService(new(MockOrderRepository), PaymentOptions{})
	_, err := noGateway.InitiateMoMo(ctx, 7, 11)
	assert.True(t, errors.HasCode(err, errors.ErrFeatureDisabled))

	orderRepo := new(MockOrderRepository)
	gateway := new(MockGateway)
	svc := NewPaymentService(orderRepo, PaymentOptions{Gateway: gateway})

	orderRepo.On("GetOrderByID", ctx, 11).Return(pendingOrder(), nil)
	gateway.On("CreatePayment", ctx, "ORD-AB12CD34", decimal.NewFromInt(500000), mock.Anything).
		Return("https://pay.momo.vn/abc", nil).Once()

	url, err := svc.InitiateMoMo(ctx, 7, 11)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.momo.vn/abc", url)

	gateway.On("CreatePayment", ctx, "ORD-AB12CD34", mock.Anything, mock.Anything).
		Return("", stderrors.New("connection refused")).Once()
	_, err = svc.InitiateMoMo(ctx, 7, 11)
	assert.True(t, errors.HasCode(err, errors.ErrGateway))

	gateway.On("CreatePayment", ctx, "ORD-AB12CD34", mock.Anything, mock.Anything).
		Return("", context.DeadlineExceeded).Once()
	_, err = svc.InitiateMoMo(ctx, 7, 11)
	assert.True(t, errors.HasCode(err, errors.ErrTimeout))
}

func TestInitiateMoMo_NotPending(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	gateway := new(MockGateway)
	svc := NewPaymentService(orderRepo, PaymentOptions{Gateway: gateway})
	ctx := context.Background()

	order := pendingOrder()
	order.Status = model.OrderConfirmed
	orderRepo.On("GetOrderByID", ctx, 11).Return(order, nil)

	_, err := svc.InitiateMoMo(ctx, 7, 11)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidTransition))
	gateway.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
