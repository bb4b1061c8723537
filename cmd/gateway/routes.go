package main

import (
	"net/http"

	"dinein-system/config"
	"dinein-system/internal/admission"
	"dinein-system/internal/gateway/handlers"
	"dinein-system/internal/gateway/middleware"
	"dinein-system/internal/health"
	"dinein-system/internal/utils"

	"github.com/gin-gonic/gin"
)

func setupRouter(app *application) *gin.Engine {
	cfg := app.config
	secret := []byte(cfg.Auth.JWTSecret)

	r := gin.New()

	r.Use(middleware.CORS())
	r.Use(middleware.RequestLogger(app.logger))
	r.Use(gin.Recovery())
	r.Use(serviceHealthMiddleware(app))

	orderingHandler := handlers.NewOrderingHTTPHandler(app.orders, app.catalog, app.logger)
	promotionHandler := handlers.NewPromotionHTTPHandler(app.validator, app.promotions, app.logger)
	reportHandler := handlers.NewReportHTTPHandler(app.orders, app.logger)

	checkout := middleware.Admission(app.guard, admission.ClassCheckout, rule(cfg.Admission.Checkout), app.logger)
	promo := middleware.Admission(app.guard, admission.ClassPromo, rule(cfg.Admission.Promo), app.logger)

	// --- Public API Group ---
	public := r.Group("/api/v1")
	public.Use(middleware.OptionalJWT(secret))
	{
		public.GET("/restaurants/:restaurant_id/menu", orderingHandler.GetMenu)
		public.POST("/cart/quote", orderingHandler.Quote)
		public.POST("/validate-promo", promo, promotionHandler.ValidatePromo)
		public.POST("/orders", checkout, orderingHandler.SubmitOrder)
	}

	// --- Staff API Group ---
	staff := r.Group("/api/v1")
	staff.Use(middleware.JWTAuth(secret), middleware.RequireRole(utils.RoleStaff))
	{
		ordersGroup := staff.Group("/orders")
		{
			ordersGroup.GET("", orderingHandler.ListOrders)
			ordersGroup.GET("/:id", orderingHandler.GetOrder)
			ordersGroup.PATCH("/:id/status", orderingHandler.UpdateStatus)
			ordersGroup.GET("/:id/history", orderingHandler.GetHistory)
		}
	}

	// --- Owner API Group ---
	owner := r.Group("/api/v1")
	owner.Use(middleware.JWTAuth(secret), middleware.RequireRole(utils.RoleOwner))
	{
		owner.POST("/restaurants/:restaurant_id/menu/refresh", orderingHandler.RefreshMenu)

		promotions := owner.Group("/promotions")
		{
			promotions.POST("", promotionHandler.CreatePromotion)
			promotions.GET("", promotionHandler.ListPromotions)
		}

		owner.GET("/reports/revenue", reportHandler.Revenue)
	}

	r.GET("/health", app.checker.Handler())
	r.GET("/health/detailed", app.checker.DetailedHandler())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Route not found",
			"error":   "NOT_FOUND",
		})
	})

	return r
}

func rule(c config.RuleConfig) admission.Rule {
	return admission.Rule{Limit: c.Limit, Window: c.Window}
}

// serviceHealthMiddleware advertises optional dependencies that are down so
// clients can tell a degraded response from a broken one.
func serviceHealthMiddleware(app *application) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := app.checker.Last()
		for _, s := range report.Services {
			c.Header("X-"+s.Name+"-Service", statusHeader(s.Status))
		}
		c.Next()
	}
}

func statusHeader(status string) string {
	if status == health.StatusHealthy {
		return "available"
	}
	return "unavailable"
}
