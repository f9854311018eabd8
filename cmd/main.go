package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"edupay/internal/bootstrap"
	"edupay/internal/config"
	cronpkg "edupay/internal/cron"
	"edupay/internal/gateway"
	"edupay/internal/handler"
	"edupay/internal/payment"
	"edupay/internal/pkg/replay"
	"edupay/internal/router"
)

func main() {
	// --- Logger ---
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// --- Database ---
	db, err := config.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := bootstrap.Migrate(db); err != nil {
		logger.Fatal("Failed to bootstrap database schema", zap.Error(err))
	}

	// --- Replay cache (Redis with in-memory fallback) ---
	cache, cacheErr := replay.New(cfg.Redis.Addr, cfg.Redis.Pass, cfg.Redis.DB, 10*time.Minute)
	if cacheErr != nil {
		logger.Warn("Redis unavailable for webhook replay cache, using in-memory fallback", zap.Error(cacheErr))
	}

	// --- Payment engine wiring ---
	gw := gateway.NewClickGateway(cfg.Click)
	verifier := payment.NewSignatureVerifier(cfg.Click.SecretKey)
	engine := payment.NewEngine(db, logger)
	issuer := payment.NewIssuer(db, gw, cfg.Payments, logger)

	paymentHandler := handler.NewPaymentHandler(issuer, logger)
	webhookHandler := handler.NewWebhookHandler(engine, verifier, cache, logger)

	// --- Echo ---
	e := echo.New()
	e.HideBanner = true
	router.Setup(e, cfg, paymentHandler, webhookHandler)

	// --- Reconciler ---
	reconciler := cronpkg.New(db, gw, cfg.Payments, logger)
	if err := reconciler.Start(); err != nil {
		logger.Fatal("Failed to start reconciler", zap.Error(err))
	}

	// --- Start Server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info("Starting edupay server", zap.String("addr", addr))
		if err := e.Start(addr); err != nil {
			logger.Info("Server stopped", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	ctx := reconciler.Stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
