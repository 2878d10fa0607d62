package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"resumeinsight/internal/cli"
	"resumeinsight/internal/config"
	"resumeinsight/internal/errors"
)

func main() {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Vault secrets override everything loaded so far
	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load secrets: %v\n", err)
		os.Exit(1)
	}

	logger.Debug("Starting resumeinsight",
		"version", cli.Version,
		"log_level", cfg.App.LogLevel,
		"api_base_url", cfg.API.BaseURL)

	// Execute command with cancellable context
	if err := cli.Execute(ctx, cfg, logger); err != nil {
		logger.LogError(err, "Command failed")
		message := err.Error()
		if _, ok := errors.AsAppError(err); ok {
			message = errors.UserMessage(err)
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		os.Exit(1)
	}
}
