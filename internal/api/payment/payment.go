package payment

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"travel-booking-backend/internal/errors"
	"travel-booking-backend/internal/gateway/momo"
	"travel-booking-backend/internal/middleware"
	"travel-booking-backend/internal/service"
	"travel-booking-backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	paymentService service.PaymentServiceInterface
}

func NewPaymentHandler(paymentService service.PaymentServiceInterface) *PaymentHandler {
	return &PaymentHandler{paymentService}
}

// ConfirmManual 演示模式下客户自行确认支付
func (h *PaymentHandler) ConfirmManual(c *gin.Context) {
	var input struct {
		OrderID int    `json:"id_order" binding:"required,min=1"`
		Method  string `json:"method" binding:"omitempty,oneof=momo bank_transfer cash demo"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "Invalid input data", err))
		return
	}

	result, err := h.paymentService.ConfirmManual(c.Request.Context(),
		c.GetInt(middleware.ContextUserID), input.OrderID, input.Method)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// InitiateMoMo 返回钱包支付跳转地址
func (h *PaymentHandler) InitiateMoMo(c *gin.Context) {
	var input struct {
		OrderID int `json:"id_order" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "Invalid input data", err))
		return
	}

	payURL, err := h.paymentService.InitiateMoMo(c.Request.Context(), c.GetInt(middleware.ContextUserID), input.OrderID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payUrl": payURL})
}

// MoMoCallback 钱包 IPN 回调，受理后返回 204
func (h *PaymentHandler) MoMoCallback(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrBadRequest, "failed to read body", err))
		return
	}

	var cb momo.Callback
	if err := json.Unmarshal(raw, &cb); err != nil {
		util.Logger.Warn("MoMo 回调格式错误",
			zap.Error(err),
			zap.String("client_ip", c.ClientIP()))
		errors.HandleError(c, errors.Wrap(errors.ErrInvalidSignature, "malformed callback", err))
		return
	}

	if _, err := h.paymentService.HandleMoMoCallback(c.Request.Context(), &cb, raw); err != nil {
		if errors.HasCode(err, errors.ErrInvalidSignature) {
			util.Logger.Warn("拒绝未通过签名校验的回调",
				zap.String("client_ip", c.ClientIP()),
				zap.String("order_code", cb.OrderID))
		}
		errors.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// bankWebhookPayload 兼容多家银行/中转服务的字段名
type bankWebhookPayload struct {
	Content        string           `json:"content"`
	OrderCode      string           `json:"order_code"`
	TransferAmount *decimal.Decimal `json:"transferAmount"`
	Amount         *decimal.Decimal `json:"amount"`
	ID             json.RawMessage  `json:"id"`
	TransactionID  json.RawMessage  `json:"transaction_id"`
}

// rawID 交易号可能是数字也可能是字符串
func rawID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(raw)
}

func (p *bankWebhookPayload) toInput(raw []byte) (*service.WebhookInput, error) {
	content := p.Content
	if strings.TrimSpace(content) == "" {
		content = p.OrderCode
	}
	if strings.TrimSpace(content) == "" {
		return nil, errors.New(errors.ErrValidation, "content or order_code is required")
	}

	amount := p.TransferAmount
	if amount == nil {
		amount = p.Amount
	}
	if amount == nil {
		return nil, errors.New(errors.ErrValidation, "transferAmount or amount is required")
	}

	txID := rawID(p.ID)
	if txID == "" {
		txID = rawID(p.TransactionID)
	}
	return &service.WebhookInput{
		Content:       content,
		Amount:        *amount,
		TransactionID: txID,
		Raw:           raw,
	}, nil
}

// BankWebhook 银行转账通知，按附言对账
func (h *PaymentHandler) BankWebhook(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrBadRequest, "failed to read body", err))
		return
	}

	var payload bankWebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "Invalid webhook payload", err))
		return
	}
	input, err := payload.toInput(raw)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	util.Logger.Info("收到银行转账通知",
		zap.String("content", input.Content),
		zap.String("amount", input.Amount.String()),
		zap.String("transaction_id", input.TransactionID))

	result, err := h.paymentService.HandleBankWebhook(c.Request.Context(), input)
	if err != nil {
		_ = c.Error(err)
		message := "internal error"
		if appErr, ok := errors.As(err); ok {
			message = appErr.Message
		}
		c.JSON(errors.StatusOf(err), gin.H{
			"success": false,
			"message": message,
		})
		return
	}

	message := "payment confirmed"
	if !result.Applied {
		message = "order already confirmed"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    message,
		"id_order":   result.OrderID,
		"order_code": result.OrderCode,
	})
}
