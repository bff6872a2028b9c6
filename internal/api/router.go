package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qs3c/playoga_server/config"
	"github.com/qs3c/playoga_server/internal/api/handler"
	"github.com/qs3c/playoga_server/internal/api/middleware"
)

// Handlers 路由用到的全部 handler
type Handlers struct {
	Auth         *handler.AuthHandler
	Coupon       *handler.CouponHandler
	Payment      *handler.PaymentHandler
	Wallet       *handler.WalletHandler
	Referral     *handler.ReferralHandler
	Points       *handler.PointsHandler
	Subscription *handler.SubscriptionHandler
	WebSocket    *handler.WebSocketHandler
}

type Router struct {
	handlers Handlers
	metrics  http.Handler
	cfg      *config.Config
	logger   *zap.Logger
}

// NewRouter metricsHandler 为 nil 时不暴露 /metrics
func NewRouter(handlers Handlers, metricsHandler http.Handler, cfg *config.Config, logger *zap.Logger) *Router {
	return &Router{
		handlers: handlers,
		metrics:  metricsHandler,
		cfg:      cfg,
		logger:   logger,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery(r.logger))
	engine.Use(middleware.Logger(r.logger))
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if r.metrics != nil {
		engine.GET("/metrics", gin.WrapH(r.metrics))
	}

	h := r.handlers
	api := engine.Group("/api/v1")
	{
		// WebSocket，token 走 query
		api.GET("/ws", h.WebSocket.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
		}

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			authenticated.GET("/auth/me", h.Auth.Me)

			authenticated.POST("/coupons/validate", h.Coupon.Validate)

			// 支付
			payments := authenticated.Group("/payments")
			{
				payments.GET("", h.Payment.List)
				payments.POST("/orders", h.Payment.CreateOrder)
				payments.POST("/verify", h.Payment.Verify)
			}

			// 钱包
			wallet := authenticated.Group("/wallet")
			{
				wallet.GET("", h.Wallet.Overview)
				wallet.POST("/withdrawals", h.Wallet.RequestWithdrawal)
			}

			authenticated.POST("/referrals/code", h.Referral.GenerateCode)

			// 积分
			points := authenticated.Group("/points")
			{
				points.GET("", h.Points.Total)
				points.POST("/award", h.Points.Award)
			}

			authenticated.GET("/subscription", h.Subscription.Status)
		}
	}

	return engine
}
