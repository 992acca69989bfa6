package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"travel-booking-backend/config"
	"travel-booking-backend/internal/api/admin"
	"travel-booking-backend/internal/api/order"
	"travel-booking-backend/internal/api/payment"
	"travel-booking-backend/internal/errors"
	"travel-booking-backend/internal/gateway/momo"
	"travel-booking-backend/internal/idempotency"
	"travel-booking-backend/internal/middleware"
	"travel-booking-backend/internal/repository/mysql"
	"travel-booking-backend/internal/service"
	"travel-booking-backend/internal/storage"
	"travel-booking-backend/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

type handlers struct {
	order   *order.OrderHandler
	refund  *order.RefundHandler
	payment *payment.PaymentHandler
	admin   *admin.AdminHandler
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			util.Logger.Error("程序发生严重错误", zap.Any("error", r))
		}
	}()

	// 初始化配置
	config.Init()
	cfg := config.AppConfig

	// 初始化日志
	util.InitLogger(cfg.LogLevel)
	defer util.Logger.Sync()

	util.Logger.Info("应用程序启动")

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		util.Logger.Fatal("连接数据库失败", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		util.Logger.Fatal("数据库连接测试失败", zap.Error(err))
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	util.Logger.Info("数据库连接成功")

	// 初始化存储库
	orderRepo := mysql.NewOrderRepository(db)
	catalogRepo := mysql.NewCatalogRepository(db)
	paymentRepo := mysql.NewPaymentRepository(db)
	userRepo := mysql.NewUserRepository(db)

	archive, err := storage.New(storage.Options{
		Backend:            cfg.ArchiveBackend,
		LocalPath:          filepath.Join(cfg.LocalStoragePath, "archive"),
		S3Region:           cfg.S3Region,
		S3Bucket:           cfg.S3Bucket,
		GCSProjectID:       cfg.GCSProjectID,
		GCSBucketName:      cfg.GCSBucketName,
		GCSCredentialsFile: cfg.GCSCredentialsFile,
	})
	if err != nil {
		util.Logger.Fatal("初始化归档存储失败", zap.Error(err), zap.String("backend", cfg.ArchiveBackend))
	}

	guard, closeGuard := newReplayGuard(cfg)
	defer closeGuard()

	var gateway service.Gateway
	if cfg.MoMoEnabled() {
		gateway = momo.NewClient(momo.Config{
			Endpoint:    cfg.MoMoEndpoint,
			PartnerCode: cfg.MoMoPartnerCode,
			AccessKey:   cfg.MoMoAccessKey,
			SecretKey:   cfg.MoMoSecretKey,
			RedirectURL: cfg.MoMoRedirectURL,
			IPNURL:      cfg.MoMoIPNURL,
			Timeout:     cfg.MoMoTimeout,
		})
		util.Logger.Info("MoMo 钱包已启用", zap.String("endpoint", cfg.MoMoEndpoint))
	} else {
		util.Logger.Info("未配置 MoMo，钱包支付关闭")
	}

	emailService := service.NewEmailService(service.NotifierConfig{
		SMTPHost:    cfg.SMTPHost,
		SMTPPort:    cfg.SMTPPort,
		Username:    cfg.SMTPUsername,
		Password:    cfg.SMTPPassword,
		FrontendURL: cfg.FrontendURL,
	}, userRepo)

	// 初始化服务
	orderService := service.NewOrderService(orderRepo, catalogRepo, paymentRepo, cfg.Currency, cfg.OrderCodePrefix)
	paymentService := service.NewPaymentService(orderRepo, service.PaymentOptions{
		Gateway:              gateway,
		Guard:                guard,
		Archive:              archive,
		Notifier:             emailService,
		CodePrefix:           cfg.OrderCodePrefix,
		ManualConfirmEnabled: cfg.ManualConfirmEnabled,
		ReplayTTL:            cfg.ReplayTTL,
	})
	refundService := service.NewRefundService(orderRepo, paymentRepo)
	adminService := service.NewAdminService(orderRepo, paymentRepo)

	analytics := errors.NewErrorAnalytics()
	h := handlers{
		order:   order.NewOrderHandler(orderService),
		refund:  order.NewRefundHandler(refundService),
		payment: payment.NewPaymentHandler(paymentService),
		admin:   admin.NewAdminHandler(adminService, paymentService, analytics),
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.ErrorMonitorMiddleware(analytics))
	r.Use(middleware.RecoveryMiddleware())

	// 配置 CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limiter := middleware.NewIPRateLimiter(cfg.WebhookRateLimit, cfg.WebhookBurst)
	registerRoutes(r, h, cfg, limiter)

	if cfg.Debug {
		for _, route := range r.Routes() {
			util.Logger.Debug("路由", zap.String("method", route.Method), zap.String("path", route.Path))
		}
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		util.Logger.Info("服务器正在启动", zap.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			util.Logger.Fatal("启动服务器失败", zap.Error(err))
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	util.Logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		util.Logger.Error("服务器强制关闭", zap.Error(err))
	}

	util.Logger.Info("服务器已优雅关闭")
}

func registerRoutes(r *gin.Engine, h handlers, cfg config.Config, limiter *middleware.IPRateLimiter) {
	webhookLimit := middleware.RateLimitMiddleware(limiter)

	// 外部系统回调，不走用户认证
	r.POST("/webhook/momo", webhookLimit, h.payment.MoMoCallback)
	r.POST("/customer/webhook/project", webhookLimit,
		middleware.WebhookKeyMiddleware(cfg.BankWebhookAPIKey), h.payment.BankWebhook)

	customer := r.Group("/customer")
	customer.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	{
		customer.POST("/orders", h.order.CreateOrder)
		customer.GET("/orders", h.order.ListOrders)
		customer.GET("/orders/:id", h.order.GetOrder)
		customer.POST("/orders/:id/cancel", h.order.CancelOrder)
		customer.GET("/orders/:id/history", h.order.GetHistory)
		customer.POST("/orders/:id/refund", h.refund.RequestRefund)
		customer.GET("/orders/:id/refund", h.refund.GetRefundStatus)

		customer.POST("/payments", h.payment.ConfirmManual)
		customer.POST("/payments/momo/init", h.payment.InitiateMoMo)
	}

	adminRoutes := r.Group("/admin")
	adminRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret), middleware.AdminMiddleware())
	{
		adminRoutes.GET("/orders/:id", h.admin.GetOrder)
		adminRoutes.POST("/orders/:id/confirm", h.admin.ConfirmOrder)
		adminRoutes.POST("/orders/:id/status", h.admin.UpdateOrderStatus)
		adminRoutes.GET("/stats", h.admin.GetSystemStats)
		adminRoutes.GET("/errors", h.admin.GetErrorStats)
	}
}

// newReplayGuard 优先使用 Redis，未配置时退回本地 bolt 文件。都不可用时不做去重，数据库的状态检查仍然生效。
func newReplayGuard(cfg config.Config) (idempotency.Guard, func()) {
	if cfg.RedisHost != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		guard, err := idempotency.NewRedisGuard(ctx, cfg.RedisHost, cfg.RedisPassword)
		if err == nil {
			util.Logger.Info("重放记录使用 Redis", zap.String("addr", cfg.RedisHost))
			return guard, func() { _ = guard.Close() }
		}
		util.Logger.Error("连接 Redis 失败，改用本地文件", zap.Error(err))
	}

	if err := os.MkdirAll(filepath.Dir(cfg.ReplayGuardPath), 0755); err != nil {
		util.Logger.Error("创建重放记录目录失败", zap.Error(err))
		return nil, func() {}
	}
	guard, err := idempotency.NewBoltGuard(cfg.ReplayGuardPath)
	if err != nil {
		util.Logger.Error("打开重放记录文件失败，关闭重放保护", zap.Error(err))
		return nil, func() {}
	}

	// 定时清理过期记录
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := guard.Purge()
				if err != nil {
					util.Logger.Error("清理重放记录失败", zap.Error(err))
					continue
				}
				util.Logger.Debug("已清理过期重放记录", zap.Int("count", n))
			case <-stop:
				return
			}
		}
	}()

	util.Logger.Info("重放记录使用本地文件", zap.String("path", cfg.ReplayGuardPath))
	return guard, func() {
		close(stop)
		_ = guard.Close()
	}
}
