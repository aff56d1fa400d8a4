package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/joho/godotenv"

	"github.com/ming0627/bellyfed-new-sub010/internal/config"
	"github.com/ming0627/bellyfed-new-sub010/internal/dynamo"
	"github.com/ming0627/bellyfed-new-sub010/internal/events"
	"github.com/ming0627/bellyfed-new-sub010/internal/importer"
	"github.com/ming0627/bellyfed-new-sub010/internal/logging"
	"github.com/ming0627/bellyfed-new-sub010/internal/metrics"
	"github.com/ming0627/bellyfed-new-sub010/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"allowed_tables", len(cfg.Import.AllowedTables),
		"batch_size", cfg.Import.BatchSize,
		"max_retries", cfg.Import.MaxRetries,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Build the shared AWS configuration; clients are constructed here and
	// injected everywhere, so tests can substitute fakes for all of them.
	ctx := context.Background()
	var awsOpts []func(*awsconfig.LoadOptions) error
	if cfg.AWS.Region != "" {
		awsOpts = append(awsOpts, awsconfig.WithRegion(cfg.AWS.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		slog.Error("failed to load AWS configuration", "error", err)
		os.Exit(1)
	}

	store := dynamo.NewStore(dynamodb.NewFromConfig(awsCfg))
	publisher := events.NewPublisher(eventbridge.NewFromConfig(awsCfg), cfg.AWS.EventBusName, cfg.AWS.EventSource)
	reporter := metrics.NewReporter(cloudwatch.NewFromConfig(awsCfg), cfg.AWS.MetricsNamespace)

	allowlist := importer.NewTableAllowlist(cfg.Import.AllowedTables)
	slog.Info("table allow-list configured", "tables", allowlist.Tables())

	service := importer.NewService(store, publisher, reporter, allowlist, importer.ServiceConfig{
		BatchSize:  cfg.Import.BatchSize,
		MaxRetries: cfg.Import.MaxRetries,
		RetryDelay: cfg.Import.RetryDelay,
	})
	limiter := importer.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)

	server := web.NewServer(service, limiter, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let in-flight imports finish before closing the listener
		if active := limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for imports to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
