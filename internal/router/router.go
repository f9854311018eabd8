package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"edupay/internal/config"
	"edupay/internal/handler"
	"edupay/internal/middleware"
)

// Setup configures all routes for the Echo server.
func Setup(
	e *echo.Echo,
	cfg *config.Config,
	paymentHandler *handler.PaymentHandler,
	webhookHandler *handler.WebhookHandler,
) {
	// Global middleware
	e.Use(echomw.Recover())
	e.Use(middleware.CORS())

	// Authenticated student endpoints
	api := e.Group("/api/payments")
	api.Use(middleware.StudentAuth(cfg.JWT.Secret))
	api.POST("/topup", paymentHandler.CreateTopUp)
	api.GET("/status", paymentHandler.Status)

	// Provider webhook: IP allowlist first, signature checked inside.
	click := e.Group("/api/payments/click")
	click.Use(middleware.SourceIPAllowlist(cfg.Click.AllowedIPs))
	click.POST("/webhook", webhookHandler.ClickWebhook)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}
