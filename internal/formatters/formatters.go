package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"resumeinsight/internal/types"

	"gopkg.in/yaml.v3"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("yaml", "any", &YAMLFormatter{})
	registry.RegisterFormatter("text", "AnalysisResult", &AnalysisTextFormatter{})
	registry.RegisterFormatter("markdown", "AnalysisResult", &AnalysisMarkdownFormatter{})
	registry.RegisterFormatter("text", "HealthStatus", &HealthTextFormatter{})
	registry.RegisterFormatter("markdown", "HealthStatus", &HealthMarkdownFormatter{})
	registry.RegisterFormatter("text", "ChatResponse", &ChatTextFormatter{})
	registry.RegisterFormatter("markdown", "ChatResponse", &ChatTextFormatter{})

	return registry
}

// GlobalRegistry is the registry used by the CLI, watcher, and gateway
var GlobalRegistry = NewFormatterRegistry()

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	data = deref(data)
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// deref lets callers pass results by pointer
func deref(data any) any {
	switch v := data.(type) {
	case *types.AnalysisResult:
		if v != nil {
			return *v
		}
	case *types.HealthStatus:
		if v != nil {
			return *v
		}
	case *types.ChatResponse:
		if v != nil {
			return *v
		}
	}
	return data
}

func getDataType(data any) string {
	switch data.(type) {
	case types.AnalysisResult:
		return "AnalysisResult"
	case types.HealthStatus:
		return "HealthStatus"
	case types.ChatResponse:
		return "ChatResponse"
	default:
		return "any"
	}
}

// ScoreBand names the quality band of a 0-100 score
func ScoreBand(score int) string {
	switch {
	case score >= 80:
		return "Excellent"
	case score >= 60:
		return "Good"
	case score >= 40:
		return "Fair"
	default:
		return "Needs Work"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// YAMLFormatter handles YAML formatting for any data type
type YAMLFormatter struct{}

func (yf *YAMLFormatter) Format(data any) (string, error) {
	yamlData, err := yaml.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(yamlData), nil
}

func (yf *YAMLFormatter) SupportedType() string {
	return "any"
}

// sortedSections returns section scores ordered by category
func sortedSections(scores map[string]int) []string {
	categories := make([]string, 0, len(scores))
	for category := range scores {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

// sectionTitle turns "work_experience" into "Work Experience"
func sectionTitle(category string) string {
	words := strings.Fields(strings.ReplaceAll(category, "_", " "))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
