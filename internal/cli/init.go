// Package cli provides common initialization utilities shared by
// cmd/finboard, cmd/finboard-mirror and cmd/finboardctl.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finboard/internal/backend"
	"finboard/internal/budget"
	"finboard/internal/config"
	applog "finboard/internal/log"
	"finboard/internal/services"
)

// SetupLogger initializes structured logging at the given LOG_LEVEL and
// sets it as the default logger.
func SetupLogger(level string) *applog.Logger {
	lvl := applog.ParseLevel(level)
	logger := applog.NewWriter(os.Stdout, lvl, applog.ComponentApp)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			applog.FieldErrorType, applog.ErrorTypeConfiguration,
			applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenLedger builds the configured store and publisher, rehydrates the
// budget from its side file and returns the ledger service. Closing the
// service releases the backend. A malformed budget file is logged and the
// default budget is used.
func OpenLedger(ctx context.Context, logger *applog.Logger, cfg *config.Config, opts ...services.Option) (*services.LedgerService, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}

	policy, err := budget.LoadFile(cfg.BudgetFile)
	switch {
	case errors.Is(err, budget.ErrMalformedFile):
		logger.Warn("Budget file is malformed, using defaults",
			applog.FieldComponent, applog.ComponentBudget,
			applog.FieldErrorType, applog.ErrorTypeMalformed,
			applog.FieldError, err)
	case err != nil:
		logger.Warn("Budget file unreadable, using defaults",
			applog.FieldComponent, applog.ComponentBudget,
			applog.FieldError, err)
	default:
		logger.Info("Budget loaded",
			applog.FieldComponent, applog.ComponentBudget,
			"path", cfg.BudgetFile,
			"categories", policy.Len())
	}

	base := []services.Option{
		services.WithPublisher(res.Publisher),
		services.WithBudgetFile(cfg.BudgetFile),
		services.WithCurrency(cfg.Currency),
		services.WithCloser("backend", res),
		services.WithLogger(logger),
	}
	return services.NewLedgerService(res.Store, policy, append(base, opts...)...), nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received",
			applog.FieldOperation, applog.OpShutdown,
			"signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached", applog.FieldOperation, applog.OpShutdown)
		} else {
			logger.Info("Shutdown complete", applog.FieldOperation, applog.OpShutdown)
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
