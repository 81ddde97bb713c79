// Command budget-emulator serves an in-memory budgeting API for local
// development and manual testing of the client.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"simplebudget/internal/cli"
	"simplebudget/internal/emulator"
	"simplebudget/internal/log"
	"simplebudget/internal/metrics"
	"simplebudget/internal/middleware/ratelimit"
)

func main() {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger("info", os.Stderr).Error("Invalid configuration", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, os.Stdout).WithComponent(log.ComponentEmulator)

	opts := emulator.Options{
		Logger:         logger,
		Metrics:        metrics.New(),
		AllowedOrigins: cfg.EmulatorAllowedOrigins,
	}
	if cfg.EmulatorRateLimit > 0 {
		opts.RateLimit = ratelimit.NewLimiter(ratelimit.Config{Requests: cfg.EmulatorRateLimit, Window: time.Minute})
		defer opts.RateLimit.Stop()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.EmulatorPort,
		Handler:           emulator.NewRouter(emulator.NewStore(), opts),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64KB
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting budget emulator", "port", cfg.EmulatorPort, "rate_limit", cfg.EmulatorRateLimit)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.EmulatorPort)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Emulator stopped gracefully")
}
