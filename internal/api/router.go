package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

// NewRouter builds the HTTP API. Everything except the webhook requires a bearer token.
func NewRouter(jwtSecret string, payments PaymentLifecycle, tenants OccupancyReconciler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Status >= 500 {
				event = log.Error().Err(v.Error)
			}
			event.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("HTTP request")
			return nil
		},
	}))

	ph := NewPaymentHandler(payments)
	th := NewTenantHandler(tenants)
	auth := AuthMiddleware(jwtSecret)
	staff := RequireRole(RoleAdmin, RoleOwner)

	e.POST("/payment/webhook", ph.Webhook)

	p := e.Group("/payment", auth)
	p.POST("/create-order", ph.CreateOrder)
	p.POST("/verify", ph.Verify)
	p.GET("/:id", ph.Get)
	p.POST("/list", ph.List, staff)
	p.POST("/tenant", ph.ListByTenant)
	p.POST("/property", ph.ListByProperty, staff)
	p.POST("/refund", ph.Refund, staff)
	p.POST("/cancel", ph.Cancel)

	t := e.Group("/tenant", auth, staff)
	t.POST("", th.Assign)
	t.PUT("", th.Reconcile)
	t.GET("", th.List)

	return e
}
