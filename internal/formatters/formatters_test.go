package formatters

import (
	"encoding/json"
	"strings"
	"testing"

	"resumeinsight/internal/types"

	"gopkg.in/yaml.v3"
)

func sampleAnalysis(withJobMatch bool) types.AnalysisResult {
	result := types.AnalysisResult{
		OverallScore:       82,
		SectionScores:      map[string]int{"work_experience": 85, "education": 70, "skills": 35},
		ATSScore:           64,
		ATSIssues:          []string{"Header contains a table"},
		ATSRecommendations: []string{"Move contact details out of the header"},
		Strengths:          []string{"Quantified achievements"},
		Weaknesses:         []string{"Long paragraphs"},
		Recommendations:    []string{"Trim older roles"},
		Metadata:           &types.ResultMetadata{ResumeLengthChars: 4100, ResumeLengthWords: 620, HasJobDescription: withJobMatch},
	}
	if withJobMatch {
		match := 58
		result.JobMatchScore = &match
		result.MissingKeywords = []string{"Terraform", "gRPC"}
	}
	return result
}

func TestScoreBand(t *testing.T) {
	tests := []struct {
		score    int
		expected string
	}{
		{100, "Excellent"},
		{80, "Excellent"},
		{79, "Good"},
		{60, "Good"},
		{59, "Fair"},
		{40, "Fair"},
		{39, "Needs Work"},
		{0, "Needs Work"},
	}

	for _, tt := range tests {
		if got := ScoreBand(tt.score); got != tt.expected {
			t.Errorf("ScoreBand(%d) = %q, expected %q", tt.score, got, tt.expected)
		}
	}
}

func TestAnalysisTextFormatter(t *testing.T) {
	output, err := GlobalRegistry.Format(sampleAnalysis(true), "text")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := []string{
		"=== OVERVIEW ===",
		"Overall Score: 82/100 (Excellent)",
		"ATS Score: 64/100 (Good)",
		"Job Match: 58/100 (Fair)",
		"=== SECTION SCORES ===",
		"Work Experience:",
		"=== ATS ===",
		"  - Header contains a table",
		"=== FEEDBACK ===",
		"  - Quantified achievements",
		"=== JOB MATCH ===",
		"  - Terraform",
		"=== METADATA ===",
		"Words: 620",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q\n%s", want, output)
		}
	}

	// sections are listed alphabetically
	education := strings.Index(output, "Education:")
	skills := strings.Index(output, "Skills:")
	work := strings.Index(output, "Work Experience:")
	if !(education < skills && skills < work) {
		t.Errorf("Expected sorted sections, got positions %d %d %d", education, skills, work)
	}
}

func TestAnalysisFormattersOmitJobMatch(t *testing.T) {
	for _, format := range []string{"text", "markdown"} {
		t.Run(format, func(t *testing.T) {
			output, err := GlobalRegistry.Format(sampleAnalysis(false), format)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if strings.Contains(strings.ToLower(output), "job match") {
				t.Errorf("Expected no job match section\n%s", output)
			}
		})
	}
}

func TestAnalysisMarkdownFormatter(t *testing.T) {
	result := sampleAnalysis(true)
	result.Weaknesses = nil

	output, err := GlobalRegistry.Format(&result, "markdown")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := []string{
		"# Résumé Analysis",
		"## Overview",
		"| Overall | 82/100 | Excellent |",
		"## Section Scores",
		"| Skills | 35/100 | Needs Work |",
		"## ATS",
		"## Feedback",
		"### Weaknesses\n\n_None_",
		"## Job Match",
		"- gRPC",
		"## Metadata",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q\n%s", want, output)
		}
	}
}

func TestGenericFormatters(t *testing.T) {
	result := sampleAnalysis(true)

	jsonOut, err := GlobalRegistry.Format(&result, "json")
	if err != nil {
		t.Fatalf("Unexpected JSON error: %v", err)
	}
	var decoded types.AnalysisResult
	if err := json.Unmarshal([]byte(jsonOut), &decoded); err != nil {
		t.Fatalf("JSON output does not parse: %v", err)
	}
	if decoded.OverallScore != 82 || decoded.JobMatchScore == nil || *decoded.JobMatchScore != 58 {
		t.Errorf("Unexpected JSON round trip: %+v", decoded)
	}

	yamlOut, err := GlobalRegistry.Format(result, "yaml")
	if err != nil {
		t.Fatalf("Unexpected YAML error: %v", err)
	}
	if !strings.Contains(yamlOut, "overall_score: 82") {
		t.Errorf("Expected snake_case YAML keys\n%s", yamlOut)
	}
	var fromYAML map[string]any
	if err := yaml.Unmarshal([]byte(yamlOut), &fromYAML); err != nil {
		t.Fatalf("YAML output does not parse: %v", err)
	}
}

func TestHealthAndChatFormatters(t *testing.T) {
	health := types.HealthStatus{Status: "healthy", Service: "analysis", Version: "1.4.0"}

	text, err := GlobalRegistry.Format(health, "text")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(text, "Status: healthy") || !strings.Contains(text, "Version: 1.4.0") {
		t.Errorf("Unexpected health text:\n%s", text)
	}

	markdown, err := GlobalRegistry.Format(&health, "markdown")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(markdown, "- **Status:** healthy") {
		t.Errorf("Unexpected health markdown:\n%s", markdown)
	}

	reply, err := GlobalRegistry.Format(types.ChatResponse{Response: "Lead with impact.", SessionID: "abc"}, "text")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if reply != "Lead with impact.\n" {
		t.Errorf("Expected bare reply, got %q", reply)
	}
}

func TestUnknownFormat(t *testing.T) {
	if _, err := GlobalRegistry.Format(sampleAnalysis(false), "html"); err == nil {
		t.Error("Expected error for unsupported format")
	}
	// text has no generic fallback
	if _, err := GlobalRegistry.Format(map[string]string{"a": "b"}, "text"); err == nil {
		t.Error("Expected error when no text formatter matches the type")
	}
}

func TestGetSupportedFormats(t *testing.T) {
	formats := NewFormatterRegistry().GetSupportedFormats()
	expected := []string{"json", "markdown", "text", "yaml"}
	if strings.Join(formats, ",") != strings.Join(expected, ",") {
		t.Errorf("Expected %v, got %v", expected, formats)
	}
}
