package cli

import (
	"context"
	"fmt"

	"resumeinsight/internal/config"
	"resumeinsight/internal/errors"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "resumeinsight",
		Short: "Analyze résumés against a hosted analysis service",
		Long: `ResumeInsight sends a résumé PDF to the analysis service and reports
overall, section and ATS scores with feedback. Progress is streamed while the
service works; if the stream stalls the analysis is retried once on the
synchronous endpoint.

It can also answer follow-up questions about an analysis, watch an inbox
directory for new résumés, and run an HTTP gateway in front of the service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the CLI with config and logger attached to ctx
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	return NewRootCommand().ExecuteContext(withRuntime(ctx, cfg, logger))
}

// withRuntime attaches the config and logger to the context, making them available to all subcommands
func withRuntime(ctx context.Context, cfg *config.Config, logger *errors.Logger) context.Context {
	ctx = context.WithValue(ctx, configKey, cfg)
	return context.WithValue(ctx, loggerKey, logger)
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok && cfg != nil {
		return cfg, nil
	}
	return nil, fmt.Errorf("config not found in context")
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok && logger != nil {
		return logger
	}
	return errors.Discard()
}
