package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 定义错误响应结构
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Error   string    `json:"error,omitempty"`
}

// SuccessResponse 定义成功响应结构
type SuccessResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// 错误码与HTTP状态码映射
var errorStatusMap = map[ErrorCode]int{
	// 系统错误 (1000-1999)
	ErrInternal: http.StatusInternalServerError,
	ErrDatabase: http.StatusInternalServerError,
	ErrCache:    http.StatusInternalServerError,
	ErrTimeout:  http.StatusGatewayTimeout,
	ErrGateway:  http.StatusBadGateway,

	// 认证错误 (2000-2999)
	ErrUnauthorized:     http.StatusUnauthorized,
	ErrForbidden:        http.StatusForbidden,
	ErrInvalidToken:     http.StatusUnauthorized,
	ErrTokenExpired:     http.StatusUnauthorized,
	ErrInvalidSignature: http.StatusBadRequest,

	// 请求错误 (3000-3999)
	ErrBadRequest:       http.StatusBadRequest,
	ErrValidation:       http.StatusBadRequest,
	ErrResourceNotFound: http.StatusNotFound,
	ErrResourceExists:   http.StatusConflict,
	ErrResourceConflict: http.StatusConflict,
	ErrTooManyRequests:  http.StatusTooManyRequests,

	// 业务错误 (4000-4999)
	ErrItemNotFound:       http.StatusNotFound,
	ErrOrderNotFound:      http.StatusNotFound,
	ErrInsufficientAmount: http.StatusBadRequest,
	ErrInvalidTransition:  http.StatusConflict,
	ErrSeatUnavailable:    http.StatusConflict,
	ErrRefundExists:       http.StatusConflict,
	ErrFeatureDisabled:    http.StatusForbidden,
}

// StatusOf 返回错误对应的 HTTP 状态码
func StatusOf(err error) int {
	if appErr, ok := As(err); ok {
		if status := errorStatusMap[appErr.Code]; status != 0 {
			return status
		}
	}
	return http.StatusInternalServerError
}

// HandleError 统一处理错误响应，同时把错误挂到 gin 上下文供监控中间件统计
func HandleError(c *gin.Context, err error) {
	_ = c.Error(err)

	if appErr, ok := As(err); ok {
		resp := ErrorResponse{
			Code:    appErr.Code,
			Message: appErr.Message,
		}

		// 内部错误不把底层细节返回给客户端
		status := StatusOf(appErr)
		if appErr.Err != nil && status < http.StatusInternalServerError {
			resp.Error = appErr.Err.Error()
		}

		c.JSON(status, resp)
		return
	}

	// 处理非 AppError 类型的错误
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Code:    ErrInternal,
		Message: "Internal Server Error",
	})
}

// HandleSuccess 统一处理成功响应
func HandleSuccess(c *gin.Context, data interface{}, message string) {
	resp := SuccessResponse{
		Code:    http.StatusOK,
		Message: message,
		Data:    data,
	}
	c.JSON(http.StatusOK, resp)
}
