package common

import (
	"fmt"
	"slices"
	"strings"

	"resumeinsight/internal/formatters"
)

// ValidateOutputFormat checks format against the configured formats and the formatter registry
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) > 0 && !slices.Contains(supportedFormats, format) {
		return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
			format, supportedFormats)
	}

	if !slices.Contains(formatters.GlobalRegistry.GetSupportedFormats(), format) {
		return fmt.Errorf("unknown output format '%s'. Known formats: %s",
			format, strings.Join(formatters.GlobalRegistry.GetSupportedFormats(), ", "))
	}

	return nil
}

// ResolveFormat picks the flag value when given and the configured default otherwise
func ResolveFormat(flagValue, configured string) string {
	if flagValue != "" {
		return flagValue
	}
	if configured != "" {
		return configured
	}
	return "text"
}
