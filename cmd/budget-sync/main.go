// Command budget-sync follows mutation events on AMQP and keeps one Google
// Sheets tab per budget and month up to date.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"simplebudget/internal/amqp"
	"simplebudget/internal/cli"
	"simplebudget/internal/events"
	"simplebudget/internal/log"
	"simplebudget/internal/sheets/google"
	"simplebudget/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger("info", os.Stderr).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, os.Stdout).WithComponent(log.ComponentWorker)
	logger.Info("Starting budget-sync")

	if !cfg.HasAMQP() || !cfg.HasSheets() {
		logger.Error("budget-sync needs AMQP_URL and GOOGLE_SPREADSHEET_ID")
		os.Exit(1)
	}

	app, err := cli.NewApp(context.Background(), cfg, logger, nil)
	if err != nil {
		logger.Error("Failed to initialize", log.FieldError, err)
		os.Exit(1)
	}
	defer app.Close()
	if _, err := app.Identity.Login(context.Background()); err != nil {
		logger.Error("Sign-in failed", log.FieldError, err)
		os.Exit(1)
	}

	sheetsClient, err := google.New(context.Background(), google.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, logger)
	defer amqpClient.Close()

	syncer := worker.NewSheetsSync(app.API, sheetsClient, logger, time.Now)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		// Export what arrived before the signal.
		if err := syncer.Flush(ctx); err != nil {
			logger.Error("Final flush failed", log.FieldError, err)
		}
	})

	if err := amqpClient.Connect(ctx, 5); err != nil {
		logger.Error("Failed to connect to AMQP", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Performing startup sync check...")
	if err := syncer.StartupSync(ctx); err != nil {
		// Not fatal: failed months stay dirty for the periodic flush.
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	go func() {
		err := amqpClient.Consume(ctx, events.AllKinds(), func(m events.Mutation) error {
			return syncer.HandleMutation(ctx, m)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
	}()
	go func() {
		if err := syncer.Run(ctx, cfg.SyncInterval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Sync loop stopped", log.FieldError, err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
