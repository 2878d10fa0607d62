package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"resumeinsight/internal/common"
	"resumeinsight/internal/errors"
	"resumeinsight/internal/types"

	"github.com/spf13/cobra"
)

type chatOptions struct {
	common.CommandConfig
	sessionID string
	noStream  bool
}

func newChatCmd() *cobra.Command {
	opts := &chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat <analysis.json> <message>",
		Short: "Ask a follow-up question about a saved analysis",
		Long: `Ask the analysis service a follow-up question about a result saved with
"analyze --format json". The reply is streamed to stdout as it arrives.

Pass the session ID printed after a reply with --session to continue the same
conversation.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVar(&opts.sessionID, "session", "", "Continue an existing chat session")
	cmd.Flags().BoolVar(&opts.noStream, "no-stream", false, "Wait for the full reply instead of streaming tokens")
	cmd.Flags().StringVar(&opts.OutputFormat, "format", "", "Output format with --no-stream: json, yaml, text, or markdown")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)

	return cmd
}

func runChat(cmd *cobra.Command, analysisFile, message string, opts *chatOptions) error {
	ctx := cmd.Context()
	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return err
	}
	logger := getLoggerFromContext(ctx)

	analysis, err := loadAnalysis(common.NewFileProcessor(logger, cfg.App.MaxFileSize), analysisFile)
	if err != nil {
		return err
	}

	b, err := newBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	req := types.ChatRequest{Message: message, SessionID: opts.sessionID, Analysis: analysis}

	if opts.noStream {
		if err := resolveFormat(&opts.CommandConfig, cfg.App.DefaultFormat, cfg); err != nil {
			return err
		}
		reply, err := b.client.Chat(ctx, req)
		if err != nil {
			return fmt.Errorf("chat failed: %w", err)
		}
		if err := common.NewOutputHandlerWithWriter(logger, cmd.OutOrStdout()).HandleOutput(reply, opts.CommandConfig); err != nil {
			return err
		}
		printSession(cmd.ErrOrStderr(), reply.SessionID)
		return nil
	}

	out := cmd.OutOrStdout()
	reply, err := b.client.ChatStream(ctx, req, func(token string) {
		_, _ = io.WriteString(out, token)
	})
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	_, _ = fmt.Fprintln(out)
	printSession(cmd.ErrOrStderr(), reply.SessionID)
	return nil
}

// loadAnalysis reads an analysis result saved as JSON
func loadAnalysis(fp *common.FileProcessor, path string) (*types.AnalysisResult, error) {
	data, err := fp.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var analysis types.AnalysisResult
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat, "analysis file is not valid JSON", err).
			WithContext("path", path)
	}
	if err := analysis.Validate(); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat, "analysis file does not contain an analysis result", err).
			WithContext("path", path)
	}
	return &analysis, nil
}

func printSession(w io.Writer, sessionID string) {
	if sessionID != "" {
		_, _ = fmt.Fprintf(w, "Session: %s\n", sessionID)
	}
}
