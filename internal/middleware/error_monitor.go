package middleware

import (
	"travel-booking-backend/internal/errors"
	"travel-booking-backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorMonitorMiddleware 把处理器挂到上下文的错误交给 analytics 统计
func ErrorMonitorMiddleware(analytics *errors.ErrorAnalytics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, e := range c.Errors {
			traced := errors.NewTracedError(e.Err, errors.ErrorContext{
				UserID:   c.GetInt(ContextUserID),
				Path:     c.FullPath(),
				Method:   c.Request.Method,
				ClientIP: c.ClientIP(),
			})
			analytics.Record(traced)

			fields := []zap.Field{
				zap.Int("error_code", int(traced.Code)),
				zap.String("error_message", traced.Message),
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			}
			if traced.Err != nil {
				fields = append(fields, zap.Error(traced.Err))
			}
			if errors.StatusOf(traced.AppError) >= 500 {
				util.Logger.Error("请求处理错误", fields...)
			} else {
				util.Logger.Info("请求被拒绝", fields...)
			}
		}
	}
}
