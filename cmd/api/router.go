package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dealhub/internal/config"
	"dealhub/internal/database"
	"dealhub/internal/handler"
	"dealhub/internal/middleware"
	"dealhub/internal/redis"
	"dealhub/internal/utils"
)

func setupRouter(
	cfg *config.Config,
	jwtManager *utils.JWTManager,
	authHandler *handler.AuthHandler,
	shopHandler *handler.ShopHandler,
	voucherHandler *handler.VoucherHandler,
	seckillHandler *handler.SeckillHandler,
	orderHandler *handler.OrderHandler,
) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	if cfg.Security.CORS.Enabled {
		router.Use(middleware.CORS(cfg.Security))
	}
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	router.GET("/health", func(c *gin.Context) {
		if err := database.Health(); err != nil {
			utils.ErrorResponse(c, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		if err := redis.Health(); err != nil {
			utils.ErrorResponse(c, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
		utils.SuccessResponse(c, gin.H{"status": "ok"})
	})

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api/v1")
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)

		api.GET("/shops", shopHandler.ListShops)
		api.GET("/shops/:id", shopHandler.GetShop)
		api.GET("/shops/:id/hot", shopHandler.GetHotShop)
		api.GET("/shops/:id/vouchers", voucherHandler.ListShopVouchers)
		api.GET("/vouchers/:id", voucherHandler.GetVoucher)

		authed := api.Group("")
		authed.Use(middleware.Auth(jwtManager))
		{
			authed.PUT("/shops", shopHandler.UpdateShop)
			authed.POST("/shops/:id/warm", shopHandler.WarmShop)
			authed.POST("/vouchers", voucherHandler.CreateVoucher)

			authed.POST("/seckill/vouchers/:voucher_id", seckillHandler.Purchase)
			authed.POST("/seckill/vouchers/:voucher_id/prewarm", seckillHandler.Prewarm)
			authed.POST("/seckill/vouchers/:voucher_id/end", seckillHandler.EndSale)

			authed.GET("/orders", orderHandler.ListOrders)
			authed.GET("/orders/:id", orderHandler.GetOrder)
		}
	}

	return router
}
