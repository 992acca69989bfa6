package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"travel-booking-backend/internal/errors"
	"travel-booking-backend/internal/gateway/momo"
	"travel-booking-backend/internal/idempotency"
	"travel-booking-backend/internal/model"
	"travel-booking-backend/internal/ordercode"
	"travel-booking-backend/internal/repository/interfaces"
	"travel-booking-backend/internal/storage"
	"travel-booking-backend/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Gateway 钱包网关，生产环境为 *momo.Client
type Gateway interface {
	CreatePayment(ctx context.Context, orderCode string, amount decimal.Decimal, description string) (string, error)
	VerifyCallback(cb *momo.Callback) bool
}

// Notifier 支付确认后的通知
type Notifier interface {
	SendOrderConfirmation(order *model.Order)
}

// PaymentServiceInterface 三种支付确认入口
type PaymentServiceInterface interface {
	ConfirmManual(ctx context.Context, userID, orderID int, method string) (*ConfirmResult, error)
	AdminConfirm(ctx context.Context, orderID int, method, transactionID string) (*ConfirmResult, error)
	ConfirmByCode(ctx context.Context, code, method, transactionID string) (*ConfirmResult, error)
	InitiateMoMo(ctx context.Context, userID, orderID int) (string, error)
	HandleMoMoCallback(ctx context.Context, cb *momo.Callback, raw []byte) (*ConfirmResult, error)
	HandleBankWebhook(ctx context.Context, in *WebhookInput) (*ConfirmResult, error)
}

// ConfirmResult 一次确认的结果。Applied 为 false 表示订单此前已经确认，本次没有任何改动。
type ConfirmResult struct {
	OrderID   int               `json:"id_order"`
	OrderCode string            `json:"order_code"`
	Status    model.OrderStatus `json:"status"`
	Applied   bool              `json:"applied"`
}

// WebhookInput 银行转账通知，Content 为付款人填写的附言
type WebhookInput struct {
	Content       string
	Amount        decimal.Decimal
	TransactionID string
	Raw           []byte
}

// PaymentOptions 可选依赖，为 nil 时对应功能关闭
type PaymentOptions struct {
	Gateway              Gateway
	Guard                idempotency.Guard
	Archive              storage.Archive
	Notifier             Notifier
	CodePrefix           string
	ManualConfirmEnabled bool
	ReplayTTL            time.Duration
}

type PaymentService struct {
	orderRepo     interfaces.OrderRepository
	gateway       Gateway
	guard         idempotency.Guard
	archive       storage.Archive
	notifier      Notifier
	matcher       *ordercode.Matcher
	manualEnabled bool
	replayTTL     time.Duration
	now           func() time.Time
}

// NewPaymentService 创建一个新的 PaymentService 实例
func NewPaymentService(orderRepo interfaces.OrderRepository, opts PaymentOptions) *PaymentService {
	if opts.CodePrefix == "" {
		opts.CodePrefix = ordercode.DefaultPrefix
	}
	if opts.ReplayTTL <= 0 {
		opts.ReplayTTL = 72 * time.Hour
	}
	return &PaymentService{
		orderRepo:     orderRepo,
		gateway:       opts.Gateway,
		guard:         opts.Guard,
		archive:       opts.Archive,
		notifier:      opts.Notifier,
		matcher:       ordercode.NewMatcher(opts.CodePrefix),
		manualEnabled: opts.ManualConfirmEnabled,
		replayTTL:     opts.ReplayTTL,
		now:           time.Now,
	}
}

// ConfirmManual 演示模式下客户自行确认支付
func (s *PaymentService) ConfirmManual(ctx context.Context, userID, orderID int, method string) (*ConfirmResult, error) {
	if !s.manualEnabled {
		return nil, errors.New(errors.ErrFeatureDisabled, "manual confirmation is disabled")
	}
	order, err := loadOwnedOrder(ctx, s.orderRepo, userID, orderID)
	if err != nil {
		return nil, err
	}
	return s.confirm(ctx, order, s.manualConfirmation(order, method, ""))
}

// AdminConfirm 后台人工对账，不受演示开关限制
func (s *PaymentService) AdminConfirm(ctx context.Context, orderID int, method, transactionID string) (*ConfirmResult, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to load order", err)
	}
	if order == nil {
		return nil, errors.New(errors.ErrOrderNotFound, "order not found")
	}
	return s.confirm(ctx, order, s.manualConfirmation(order, method, transactionID))
}

// ConfirmByCode 命令行按订单编号人工对账
func (s *PaymentService) ConfirmByCode(ctx context.Context, code, method, transactionID string) (*ConfirmResult, error) {
	order, err := s.orderRepo.GetOrderByCode(ctx, code)
	if err == nil && order == nil {
		order, err = s.orderRepo.GetOrderByCompactCode(ctx, ordercode.Compact(code))
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to load order", err)
	}
	if order == nil {
		return nil, errors.New(errors.ErrOrderNotFound, "order not found")
	}
	return s.confirm(ctx, order, s.manualConfirmation(order, method, transactionID))
}

func (s *PaymentService) manualConfirmation(order *model.Order, method, transactionID string) *model.Confirmation {
	now := s.now()
	if method == "" {
		method = order.PaymentMethod
	}
	if transactionID == "" {
		transactionID = fmt.Sprintf("MANUAL-%d", now.Unix())
	}
	return &model.Confirmation{
		OrderID:       order.ID,
		TransactionID: transactionID,
		Method:        method,
		Source:        model.SourceManual,
		PaidAt:        now,
	}
}

// InitiateMoMo 以 order_code 向网关发起支付，返回跳转地址。超时或失败时订单保持 pending。
func (s *PaymentService) InitiateMoMo(ctx context.Context, userID, orderID int) (string, error) {
	if s.gateway == nil {
		return "", errors.New(errors.ErrFeatureDisabled, "momo is not configured")
	}
	order, err := loadOwnedOrder(ctx, s.orderRepo, userID, orderID)
	if err != nil {
		return "", err
	}
	if order.Status != model.OrderPending {
		return "", errors.New(errors.ErrInvalidTransition, "order is not awaiting payment")
	}

	payURL, err := s.gateway.CreatePayment(ctx, order.OrderCode, order.TotalAmount,
		"Thanh toan don hang "+order.OrderCode)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return "", errors.Wrap(errors.ErrTimeout, "momo did not respond in time", err)
		}
		return "", errors.Wrap(errors.ErrGateway, "momo payment initiation failed", err)
	}

	util.Logger.Info("MoMo 支付已发起",
		zap.Int("order_id", order.ID),
		zap.String("order_code", order.OrderCode))
	return payURL, nil
}

// HandleMoMoCallback 处理钱包回调。签名校验先于读取任何字段；结果码非成功时不做任何改动。
func (s *PaymentService) HandleMoMoCallback(ctx context.Context, cb *momo.Callback, raw []byte) (*ConfirmResult, error) {
	if s.gateway == nil || !s.gateway.VerifyCallback(cb) {
		code := ""
		if cb != nil {
			code = cb.OrderID
		}
		util.Logger.Warn("MoMo 回调签名校验失败", zap.String("order_code", code))
		return nil, errors.New(errors.ErrInvalidSignature, "invalid callback signature")
	}
	s.archiveEvidence(model.SourceGateway, cb.OrderID, raw)

	if !cb.Succeeded() {
		util.Logger.Info("MoMo 报告支付未成功，忽略",
			zap.String("order_code", cb.OrderID),
			zap.Int("result_code", cb.ResultCode),
			zap.String("message", cb.Message))
		return nil, nil
	}

	transactionID := strconv.FormatInt(cb.TransID, 10)
	replayKey := idempotency.Key(model.SourceGateway, transactionID)
	if result := s.replayed(ctx, replayKey, cb.OrderID); result != nil {
		return result, nil
	}

	order, err := s.orderRepo.GetOrderByCode(ctx, cb.OrderID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to load order", err)
	}
	if order == nil {
		util.Logger.Warn("MoMo 回调的订单不存在", zap.String("order_code", cb.OrderID))
		return nil, errors.New(errors.ErrOrderNotFound, "order not found")
	}

	if err := checkAmount(order, decimal.NewFromInt(cb.Amount)); err != nil {
		return nil, err
	}

	result, err := s.confirm(ctx, order, &model.Confirmation{
		OrderID:       order.ID,
		TransactionID: transactionID,
		Method:        model.PaymentMethodMoMo,
		Source:        model.SourceGateway,
		PaidAt:        s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.markProcessed(ctx, replayKey)
	return result, nil
}

// HandleBankWebhook 按转账附言匹配订单，金额不少于订单总额时确认支付
func (s *PaymentService) HandleBankWebhook(ctx context.Context, in *WebhookInput) (*ConfirmResult, error) {
	candidates := s.matcher.Candidates(in.Content)
	guess := ""
	if len(candidates) > 0 {
		guess = candidates[0]
	}
	s.archiveEvidence(model.SourceWebhook, guess, in.Raw)

	var replayKey string
	if in.TransactionID != "" {
		replayKey = idempotency.Key(model.SourceWebhook, in.TransactionID)
		if result := s.replayed(ctx, replayKey, guess); result != nil {
			return result, nil
		}
	}

	order, err := s.matchOrder(ctx, in.Content, candidates)
	if err != nil {
		return nil, err
	}
	if order == nil {
		util.Logger.Warn("转账附言未匹配到订单",
			zap.String("content", in.Content),
			zap.String("amount", in.Amount.String()))
		return nil, errors.New(errors.ErrOrderNotFound, "no order matches the transfer content")
	}

	if err := checkAmount(order, in.Amount); err != nil {
		return nil, err
	}

	transactionID := in.TransactionID
	if transactionID == "" {
		transactionID = fmt.Sprintf("WEBHOOK-%d", s.now().Unix())
	}

	result, err := s.confirm(ctx, order, &model.Confirmation{
		OrderID:       order.ID,
		TransactionID: transactionID,
		Method:        model.PaymentMethodBankTransfer,
		Source:        model.SourceWebhook,
		PaidAt:        s.now(),
	})
	if err != nil {
		return nil, err
	}
	if replayKey != "" {
		s.markProcessed(ctx, replayKey)
	}
	return result, nil
}

// matchOrder 先按去掉分隔符的编号查找，再退回到附言原文精确匹配
func (s *PaymentService) matchOrder(ctx context.Context, content string, candidates []string) (*model.Order, error) {
	for _, compact := range candidates {
		order, err := s.orderRepo.GetOrderByCompactCode(ctx, compact)
		if err != nil {
			return nil, errors.Wrap(errors.ErrDatabase, "failed to match order", err)
		}
		if order != nil {
			return order, nil
		}
	}

	literal := ordercode.Literal(content)
	if literal == "" {
		return nil, nil
	}
	order, err := s.orderRepo.GetOrderByCode(ctx, literal)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to match order", err)
	}
	return order, nil
}

// checkAmount 少付拒绝，多付照常确认
func checkAmount(order *model.Order, paid decimal.Decimal) error {
	if paid.LessThan(order.TotalAmount) {
		util.Logger.Warn("支付金额不足",
			zap.Int("order_id", order.ID),
			zap.String("order_code", order.OrderCode),
			zap.String("paid", paid.String()),
			zap.String("total", order.TotalAmount.String()))
		return errors.New(errors.ErrInsufficientAmount,
			fmt.Sprintf("paid %s is less than order total %s", paid.String(), order.TotalAmount.String()))
	}
	return nil
}

// confirm 所有入口共用的确认逻辑。订单已确认（或已进入后续流程）时返回未生效的结果而不是错误。
func (s *PaymentService) confirm(ctx context.Context, order *model.Order, c *model.Confirmation) (*ConfirmResult, error) {
	applied, current, err := s.orderRepo.ConfirmOrder(ctx, c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to confirm order", err)
	}

	result := &ConfirmResult{OrderID: order.ID, OrderCode: order.OrderCode, Status: current, Applied: applied}
	if applied {
		order.Status = current
		order.PaymentTransactionID = &c.TransactionID
		util.Logger.Info("支付确认成功",
			zap.Int("order_id", order.ID),
			zap.String("order_code", order.OrderCode),
			zap.String("source", c.Source),
			zap.String("transaction_id", c.TransactionID))
		if s.notifier != nil {
			s.notifier.SendOrderConfirmation(order)
		}
		return result, nil
	}

	switch current {
	case "":
		return nil, errors.New(errors.ErrOrderNotFound, "order not found")
	case model.OrderConfirmed, model.OrderProcessing, model.OrderCompleted:
		util.Logger.Info("订单已确认，忽略重复的支付通知",
			zap.Int("order_id", order.ID),
			zap.String("source", c.Source),
			zap.String("transaction_id", c.TransactionID))
		return result, nil
	}
	return nil, errors.New(errors.ErrInvalidTransition,
		fmt.Sprintf("order is %s and cannot be confirmed", current))
}

// replayed 交易号已处理过时直接返回成功结果
func (s *PaymentService) replayed(ctx context.Context, key, code string) *ConfirmResult {
	if s.guard == nil {
		return nil
	}
	seen, err := s.guard.Seen(ctx, key)
	if err != nil {
		util.Logger.Warn("查询重放记录失败", zap.Error(err), zap.String("key", key))
		return nil
	}
	if !seen {
		return nil
	}
	util.Logger.Info("重复投递的支付通知，直接返回", zap.String("key", key))
	return &ConfirmResult{OrderCode: code, Status: model.OrderConfirmed}
}

func (s *PaymentService) markProcessed(ctx context.Context, key string) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Mark(ctx, key, s.replayTTL); err != nil {
		util.Logger.Warn("写入重放记录失败", zap.Error(err), zap.String("key", key))
	}
}

// archiveEvidence 异步保存回调原文，失败只记录日志
func (s *PaymentService) archiveEvidence(source, code string, raw []byte) {
	if s.archive == nil || len(raw) == 0 {
		return
	}
	key := util.EvidenceKey(source, code, s.now())
	body := append([]byte(nil), raw...)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.archive.Put(ctx, key, body); err != nil {
			util.Logger.Error("归档回调原文失败", zap.Error(err), zap.String("key", key))
		}
	}()
}
