package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finboard/internal/cache"
	"finboard/internal/cli"
	"finboard/internal/export"
	apphttp "finboard/internal/http"
	applog "finboard/internal/log"
	"finboard/internal/middleware/ratelimit"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ledger, err := cli.OpenLedger(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to open ledger",
			applog.FieldOperation, applog.OpStartup,
			applog.FieldComponent, applog.ComponentBackend,
			applog.FieldError, err)
		os.Exit(1)
	}

	exports := export.NewCache(16, 10*time.Minute)
	caches := cache.NewManager()
	caches.Register(exports.LRU())
	caches.StartCleanup(5 * time.Minute)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:            ":" + cfg.Port,
		MaxReceiptBytes: cfg.MaxReceiptBytes,
		RateLimit:       ratelimit.DefaultConfig(),
		Logger:          logger,
	}, ledger, exports)

	// Configure server timeouts and limits
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
		if err := ledger.Close(); err != nil {
			logger.Error("Failed to release ledger resources", applog.FieldError, err)
		}
	})

	logger.Info("Starting finboard server",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"currency", cfg.Currency,
		"events", cfg.AMQPURL != "")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
