package middleware

import (
	"travel-booking-backend/internal/errors"
	"travel-booking-backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RoleAdmin 令牌中的管理员角色
const RoleAdmin = "admin"

// AdminMiddleware 确保只有管理员可以访问某些路由，必须挂在 AuthMiddleware 之后
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get(ContextUserID)
		if !exists {
			util.Logger.Warn("用户ID不存在", zap.String("path", c.Request.URL.Path))
			errors.HandleError(c, errors.New(errors.ErrUnauthorized, "需要认证"))
			c.Abort()
			return
		}

		if c.GetString(ContextRole) != RoleAdmin {
			util.Logger.Warn("非管理员访问",
				zap.Any("user_id", userID),
				zap.String("client_ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path))
			errors.HandleError(c, errors.New(errors.ErrForbidden, "需要管理员权限"))
			c.Abort()
			return
		}

		c.Next()
	}
}
