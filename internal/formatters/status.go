package formatters

import (
	"fmt"
	"strings"

	"resumeinsight/internal/types"
)

// HealthTextFormatter handles text formatting for health responses
type HealthTextFormatter struct{}

func (htf *HealthTextFormatter) Format(data any) (string, error) {
	status, ok := data.(types.HealthStatus)
	if !ok {
		return "", fmt.Errorf("expected HealthStatus, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== SERVICE HEALTH ===\n")
	output.WriteString(fmt.Sprintf("Status: %s\n", status.Status))
	if status.Service != "" {
		output.WriteString(fmt.Sprintf("Service: %s\n", status.Service))
	}
	if status.Version != "" {
		output.WriteString(fmt.Sprintf("Version: %s\n", status.Version))
	}
	return output.String(), nil
}

func (htf *HealthTextFormatter) SupportedType() string {
	return "HealthStatus"
}

// HealthMarkdownFormatter handles markdown formatting for health responses
type HealthMarkdownFormatter struct{}

func (hmf *HealthMarkdownFormatter) Format(data any) (string, error) {
	status, ok := data.(types.HealthStatus)
	if !ok {
		return "", fmt.Errorf("expected HealthStatus, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Service Health\n\n")
	output.WriteString(fmt.Sprintf("- **Status:** %s\n", status.Status))
	if status.Service != "" {
		output.WriteString(fmt.Sprintf("- **Service:** %s\n", status.Service))
	}
	if status.Version != "" {
		output.WriteString(fmt.Sprintf("- **Version:** %s\n", status.Version))
	}
	return output.String(), nil
}

func (hmf *HealthMarkdownFormatter) SupportedType() string {
	return "HealthStatus"
}

// ChatTextFormatter prints only the reply body
type ChatTextFormatter struct{}

func (ctf *ChatTextFormatter) Format(data any) (string, error) {
	reply, ok := data.(types.ChatResponse)
	if !ok {
		return "", fmt.Errorf("expected ChatResponse, got %T", data)
	}
	return strings.TrimRight(reply.Response, "\n") + "\n", nil
}

func (ctf *ChatTextFormatter) SupportedType() string {
	return "ChatResponse"
}
