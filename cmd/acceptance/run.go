package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"acceptcli/internal/files"
	"acceptcli/internal/infrastructure"
	"acceptcli/internal/operations"
	"acceptcli/internal/validation"
)

// runAcceptance executes one acceptance run. The manifest and metrics are
// written only when every step succeeds.
func runAcceptance(ctx context.Context, opts *options) (*operations.RunManifest, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	ctx = infrastructure.EnsureRunID(ctx)
	runID := infrastructure.GetRunID(ctx)

	paths := cfg.GetPaths()
	paths.LogPathResolution(logger)

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateInputs(validation.Inputs(cfg)); err != nil {
		return nil, err
	}
	if err := validator.ValidateOutputDirectory(paths.OutputDir); err != nil {
		return nil, err
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfig{
		ServiceName:   cfg.Telemetry.ServiceName,
		EnableTracing: cfg.Telemetry.Enabled,
		TraceFile:     paths.TraceFile,
	}, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			infrastructure.WithError(logger, err).Warn("Telemetry shutdown failed")
		}
	}()

	logger.InfoContext(ctx, "Starting acceptance run",
		slog.String("scenario", cfg.Run.ScenarioName),
		slog.Bool("recompute", cfg.Run.Recompute),
		slog.Any("relevant_years", cfg.Run.RelevantYears))

	manifest := operations.NewRunManifest(runID, cfg.Run.ScenarioName)
	svc := &operations.Services{
		Config:   cfg,
		Paths:    paths,
		Cache:    files.NewCache(paths.CacheDir, cfg.Run.Recompute, logger, providers.Metrics),
		Manifest: manifest,
		Metrics:  providers.Metrics,
		Logger:   logger,
	}
	registry, err := operations.NewAcceptanceRegistry(svc)
	if err != nil {
		return nil, err
	}

	runErr := operations.NewManager(registry, manifest, logger).Run(ctx, operations.NewRunState(runID))
	manifest.Finish(runErr)
	if runErr != nil {
		return manifest, runErr
	}

	if err := manifest.SaveToFile(paths.ManifestJSON); err != nil {
		return manifest, fmt.Errorf("failed to save run manifest: %w", err)
	}
	if err := providers.WriteMetrics(paths.MetricsFile); err != nil {
		infrastructure.WithError(logger, err).Warn("Failed to write metrics")
	}

	logger.InfoContext(ctx, "Acceptance run complete",
		slog.String("manifest", paths.ManifestJSON),
		slog.Int("artifacts", len(manifest.Outputs)))
	return manifest, nil
}
