package order

import (
	"net/http"

	"travel-booking-backend/internal/errors"
	"travel-booking-backend/internal/middleware"
	"travel-booking-backend/internal/service"
	"travel-booking-backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RefundHandler 处理退款相关的请求
type RefundHandler struct {
	refundService service.RefundServiceInterface
}

func NewRefundHandler(refundService service.RefundServiceInterface) *RefundHandler {
	return &RefundHandler{refundService}
}

// RequestRefund 处理退款申请
func (h *RefundHandler) RequestRefund(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var input struct {
		Amount decimal.Decimal `json:"amount"`
		Reason string          `json:"reason" binding:"max=1000"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		util.Logger.Info("无效的退款请求", zap.Error(err))
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "Invalid input", err))
		return
	}

	request, err := h.refundService.RequestRefund(c.Request.Context(),
		c.GetInt(middleware.ContextUserID), orderID, input.Amount, input.Reason)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    201,
		"message": "Refund request submitted successfully",
		"data":    request,
	})
}

// GetRefundStatus 获取最近一次退款申请
func (h *RefundHandler) GetRefundStatus(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	request, err := h.refundService.GetRefundStatus(c.Request.Context(), c.GetInt(middleware.ContextUserID), orderID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"id":         request.ID,
			"amount":     request.Amount,
			"status":     request.Status,
			"reason":     request.Reason,
			"created_at": request.CreatedAt,
		},
	})
}
