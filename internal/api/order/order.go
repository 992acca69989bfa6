package order

import (
	"encoding/json"
	"net/http"
	"strconv"

	"travel-booking-backend/internal/errors"
	"travel-booking-backend/internal/middleware"
	"travel-booking-backend/internal/model"
	"travel-booking-backend/internal/service"
	"travel-booking-backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orderService service.OrderServiceInterface
}

func NewOrderHandler(orderService service.OrderServiceInterface) *OrderHandler {
	util.RegisterValidators()
	return &OrderHandler{orderService}
}

type createOrderRequest struct {
	ItemID        int             `json:"id_item" binding:"required,min=1"`
	ItemType      model.ItemType  `json:"item_type" binding:"required,oneof=tour accommodation vehicle ticket"`
	PaymentMethod string          `json:"payment_method" binding:"omitempty,oneof=momo bank_transfer cash demo"`
	Details       json.RawMessage `json:"details"`
}

// orderIDParam 解析路径中的订单 ID，失败时已写好响应
func orderIDParam(c *gin.Context) (int, bool) {
	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil || orderID <= 0 {
		errors.HandleError(c, errors.New(errors.ErrBadRequest, "Invalid order ID"))
		return 0, false
	}
	return orderID, true
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var input createOrderRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		util.Logger.Info("无效的下单请求", zap.Error(err))
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "Invalid input data", err))
		return
	}

	detail, err := model.ParseDetail(input.ItemType, input.Details)
	if err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "Invalid booking details", err))
		return
	}
	if err := binding.Validator.ValidateStruct(detail); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "Invalid booking details", err))
		return
	}

	userID := c.GetInt(middleware.ContextUserID)
	order, err := h.orderService.CreateOrder(c.Request.Context(), userID, &service.CreateOrderInput{
		ItemID:        input.ItemID,
		ItemType:      input.ItemType,
		PaymentMethod: input.PaymentMethod,
		Detail:        detail,
	})
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"id_order":       order.ID,
		"order_code":     order.OrderCode,
		"total_amount":   order.TotalAmount,
		"payment_method": order.PaymentMethod,
	})
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.orderService.ListOrders(c.Request.Context(), c.GetInt(middleware.ContextUserID))
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"orders": orders,
		},
	})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), c.GetInt(middleware.ContextUserID), orderID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, order, "")
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	if err := h.orderService.CancelOrder(c.Request.Context(), c.GetInt(middleware.ContextUserID), orderID); err != nil {
		errors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *OrderHandler) GetHistory(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	history, err := h.orderService.GetHistory(c.Request.Context(), c.GetInt(middleware.ContextUserID), orderID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, gin.H{"history": history}, "")
}
