package cli

import (
	"context"
	"fmt"
	"time"

	"resumeinsight/internal/client"
	"resumeinsight/internal/common"
	"resumeinsight/internal/config"
	"resumeinsight/internal/errors"
	"resumeinsight/internal/observability"

	"github.com/spf13/cobra"
)

// backend bundles the analysis client with the observability it reports to
type backend struct {
	client        *client.Client
	observability *observability.ObservabilityManager
	logger        *errors.Logger
}

// newBackend wires observability and the analysis client from cfg
func newBackend(cfg *config.Config, logger *errors.Logger) (*backend, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey, err.Error(), nil)
	}

	om, err := observability.NewObservabilityManager(
		observability.GetObservabilityConfig(cfg, Version),
		observability.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	cl, err := client.New(cfg.API, client.Options{
		Logger:        logger,
		Observability: om,
		Version:       Version,
	})
	if err != nil {
		_ = om.Shutdown(context.Background())
		return nil, err
	}

	return &backend{client: cl, observability: om, logger: logger}, nil
}

// Close flushes telemetry
func (b *backend) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.observability.Shutdown(ctx); err != nil {
		b.logger.LogError(err, "Failed to shutdown observability")
	}
}

// resolveFormat applies the configured default and validates the result
func resolveFormat(cmdConfig *common.CommandConfig, configured string, cfg *config.Config) error {
	cmdConfig.OutputFormat = common.ResolveFormat(cmdConfig.OutputFormat, configured)
	return common.ValidateOutputFormat(cmdConfig.OutputFormat, cfg.App.SupportedFormats)
}

// completeFormats offers the configured output formats for --format
func completeFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil || len(cfg.App.SupportedFormats) == 0 {
		return []string{"json", "markdown", "text", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	}
	return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
}
