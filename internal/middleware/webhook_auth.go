package middleware

import (
	"crypto/subtle"
	"strings"

	"travel-booking-backend/internal/errors"
	"travel-booking-backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookKeyMiddleware 要求请求头 Authorization: Apikey <key>。key 为空时不校验。
func WebhookKeyMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}

		got := ""
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Apikey") {
			got = strings.TrimSpace(parts[1])
		}

		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			util.Logger.Warn("银行回调密钥校验失败",
				zap.String("client_ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path))
			errors.HandleError(c, errors.New(errors.ErrUnauthorized, "invalid webhook api key"))
			c.Abort()
			return
		}
		c.Next()
	}
}
