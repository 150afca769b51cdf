package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"finboard/internal/amqp"
	"finboard/internal/backend"
	"finboard/internal/cli"
	applog "finboard/internal/log"
	"finboard/internal/services"
	gsheet "finboard/internal/sheets/google"
	"finboard/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger = logger.WithComponent(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting finboard-mirror", applog.FieldOperation, applog.OpStartup)

	if !cfg.MirrorEnabled() {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the mirror worker",
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	if !bcfg.Shared() {
		logger.Error("The memory backend cannot be mirrored from another process",
			"backend", bcfg.Type,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}
	source, err := backend.NewFactory(logger.Logger).CreateStore(bcfg)
	if err != nil {
		logger.Error("Failed to open ledger store", applog.FieldError, err)
		os.Exit(1)
	}
	defer source.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := gsheet.OptionsFromEnv()
	opts.SpreadsheetID = cfg.GoogleSpreadsheetID
	opts.SheetName = cfg.GoogleSheetName
	sheetsClient, err := gsheet.New(ctx, opts)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized",
		applog.FieldComponent, applog.ComponentSheets,
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	mirror := worker.NewMirrorWorker(source.Store, sheetsClient)

	// Catch up on events missed while the worker was down.
	if err := mirror.StartupMirror(ctx); err != nil {
		logger.Error("Startup mirror failed", applog.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			err := amqpClient.ConsumeEvents(gctx, mirror.HandleEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP_URL not set, mirroring on the timer only")
	}

	processor := services.NewMirrorProcessor(mirror, services.MirrorProcessorConfig{
		Interval: cfg.MirrorInterval,
	})
	g.Go(func() error {
		if err := processor.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return processor.Stop(stopCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Mirror worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Mirror worker stopped gracefully", "passes", processor.Runs())
}
