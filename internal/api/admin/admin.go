package admin

import (
	"net/http"
	"strconv"

	"travel-booking-backend/internal/errors"
	"travel-booking-backend/internal/model"
	"travel-booking-backend/internal/service"
	"travel-booking-backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler 按功能模块组织处理方法
type AdminHandler struct {
	adminService   service.AdminServiceInterface
	paymentService service.PaymentServiceInterface
	analytics      *errors.ErrorAnalytics
}

// NewAdminHandler 创建一个新的 AdminHandler 实例
func NewAdminHandler(
	adminService service.AdminServiceInterface,
	paymentService service.PaymentServiceInterface,
	analytics *errors.ErrorAnalytics,
) *AdminHandler {
	return &AdminHandler{adminService, paymentService, analytics}
}

func orderIDParam(c *gin.Context) (int, bool) {
	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil || orderID <= 0 {
		errors.HandleError(c, errors.New(errors.ErrBadRequest, "无效的订单ID"))
		return 0, false
	}
	return orderID, true
}

// 订单管理
func (h *AdminHandler) GetOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := h.adminService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, order, "")
}

// ConfirmOrder 人工对账，不受演示开关限制
func (h *AdminHandler) ConfirmOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var input struct {
		Method        string `json:"method" binding:"omitempty,oneof=momo bank_transfer cash demo"`
		TransactionID string `json:"transaction_id" binding:"max=128"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的请求数据", err))
			return
		}
	}

	result, err := h.paymentService.AdminConfirm(c.Request.Context(), orderID, input.Method, input.TransactionID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	util.Logger.Info("管理员确认支付",
		zap.Int("order_id", orderID),
		zap.Bool("applied", result.Applied))
	errors.HandleSuccess(c, result, "")
}

func (h *AdminHandler) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var input struct {
		Status model.OrderStatus `json:"status" binding:"required"`
		Note   string            `json:"note" binding:"max=255"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的请求数据", err))
		return
	}

	order, err := h.adminService.UpdateOrderStatus(c.Request.Context(), orderID, input.Status, input.Note)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, order, "订单状态已更新")
}

// 系统管理
func (h *AdminHandler) GetSystemStats(c *gin.Context) {
	stats, err := h.adminService.GetSystemStats(c.Request.Context())
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": stats,
	})
}

func (h *AdminHandler) GetErrorStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": h.analytics.GetStats(),
	})
}
