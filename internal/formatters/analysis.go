package formatters

import (
	"fmt"
	"strings"

	"resumeinsight/internal/types"
)

// AnalysisTextFormatter renders an analysis as plain text, one block per tab
type AnalysisTextFormatter struct{}

func (atf *AnalysisTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AnalysisResult)
	if !ok {
		return "", fmt.Errorf("expected AnalysisResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== OVERVIEW ===\n")
	output.WriteString(fmt.Sprintf("Overall Score: %d/100 (%s)\n", result.OverallScore, ScoreBand(result.OverallScore)))
	output.WriteString(fmt.Sprintf("ATS Score: %d/100 (%s)\n", result.ATSScore, ScoreBand(result.ATSScore)))
	if result.HasJobMatch() {
		output.WriteString(fmt.Sprintf("Job Match: %d/100 (%s)\n", *result.JobMatchScore, ScoreBand(*result.JobMatchScore)))
	}
	output.WriteString("\n")

	if len(result.SectionScores) > 0 {
		output.WriteString("=== SECTION SCORES ===\n")
		for _, category := range sortedSections(result.SectionScores) {
			score := result.SectionScores[category]
			output.WriteString(fmt.Sprintf("%-20s %3d/100  %s\n", sectionTitle(category)+":", score, ScoreBand(score)))
		}
		output.WriteString("\n")
	}

	output.WriteString("=== ATS ===\n")
	writeTextList(&output, "Issues", result.ATSIssues)
	writeTextList(&output, "Recommendations", result.ATSRecommendations)

	output.WriteString("=== FEEDBACK ===\n")
	writeTextList(&output, "Strengths", result.Strengths)
	writeTextList(&output, "Weaknesses", result.Weaknesses)
	writeTextList(&output, "Recommendations", result.Recommendations)

	if result.HasJobMatch() {
		output.WriteString("=== JOB MATCH ===\n")
		output.WriteString(fmt.Sprintf("Match Score: %d/100\n", *result.JobMatchScore))
		writeTextList(&output, "Missing Keywords", result.MissingKeywords)
	}

	if result.Metadata != nil {
		output.WriteString("=== METADATA ===\n")
		output.WriteString(fmt.Sprintf("Characters: %d\n", result.Metadata.ResumeLengthChars))
		output.WriteString(fmt.Sprintf("Words: %d\n", result.Metadata.ResumeLengthWords))
		output.WriteString(fmt.Sprintf("Job Description Provided: %t\n", result.Metadata.HasJobDescription))
	}

	return strings.TrimRight(output.String(), "\n") + "\n", nil
}

func (atf *AnalysisTextFormatter) SupportedType() string {
	return "AnalysisResult"
}

func writeTextList(output *strings.Builder, title string, items []string) {
	output.WriteString(title + ":\n")
	if len(items) == 0 {
		output.WriteString("  (none)\n\n")
		return
	}
	for _, item := range items {
		output.WriteString("  - " + item + "\n")
	}
	output.WriteString("\n")
}

// AnalysisMarkdownFormatter renders an analysis as markdown
type AnalysisMarkdownFormatter struct{}

func (amf *AnalysisMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AnalysisResult)
	if !ok {
		return "", fmt.Errorf("expected AnalysisResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Résumé Analysis\n\n")

	output.WriteString("## Overview\n\n")
	output.WriteString("| Metric | Score | Rating |\n")
	output.WriteString("|--------|-------|--------|\n")
	output.WriteString(fmt.Sprintf("| Overall | %d/100 | %s |\n", result.OverallScore, ScoreBand(result.OverallScore)))
	output.WriteString(fmt.Sprintf("| ATS | %d/100 | %s |\n", result.ATSScore, ScoreBand(result.ATSScore)))
	if result.HasJobMatch() {
		output.WriteString(fmt.Sprintf("| Job Match | %d/100 | %s |\n", *result.JobMatchScore, ScoreBand(*result.JobMatchScore)))
	}
	output.WriteString("\n")

	if len(result.SectionScores) > 0 {
		output.WriteString("## Section Scores\n\n")
		output.WriteString("| Section | Score | Rating |\n")
		output.WriteString("|---------|-------|--------|\n")
		for _, category := range sortedSections(result.SectionScores) {
			score := result.SectionScores[category]
			output.WriteString(fmt.Sprintf("| %s | %d/100 | %s |\n", sectionTitle(category), score, ScoreBand(score)))
		}
		output.WriteString("\n")
	}

	output.WriteString("## ATS\n\n")
	writeMarkdownList(&output, "Issues", result.ATSIssues)
	writeMarkdownList(&output, "Recommendations", result.ATSRecommendations)

	output.WriteString("## Feedback\n\n")
	writeMarkdownList(&output, "Strengths", result.Strengths)
	writeMarkdownList(&output, "Weaknesses", result.Weaknesses)
	writeMarkdownList(&output, "Recommendations", result.Recommendations)

	if result.HasJobMatch() {
		output.WriteString("## Job Match\n\n")
		output.WriteString(fmt.Sprintf("**Match Score:** %d/100\n\n", *result.JobMatchScore))
		writeMarkdownList(&output, "Missing Keywords", result.MissingKeywords)
	}

	if result.Metadata != nil {
		output.WriteString("## Metadata\n\n")
		output.WriteString(fmt.Sprintf("- **Characters:** %d\n", result.Metadata.ResumeLengthChars))
		output.WriteString(fmt.Sprintf("- **Words:** %d\n", result.Metadata.ResumeLengthWords))
		output.WriteString(fmt.Sprintf("- **Job Description Provided:** %t\n", result.Metadata.HasJobDescription))
	}

	return strings.TrimRight(output.String(), "\n") + "\n", nil
}

func (amf *AnalysisMarkdownFormatter) SupportedType() string {
	return "AnalysisResult"
}

func writeMarkdownList(output *strings.Builder, title string, items []string) {
	output.WriteString("### " + title + "\n\n")
	if len(items) == 0 {
		output.WriteString("_None_\n\n")
		return
	}
	for _, item := range items {
		output.WriteString("- " + item + "\n")
	}
	output.WriteString("\n")
}
