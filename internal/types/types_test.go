package types

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
)

func TestAnalysisRequestIsImmutable(t *testing.T) {
	data := []byte("%PDF-1.4 test")
	req := NewAnalysisRequest("cv.pdf", data, "  Go engineer  ")

	data[0] = 'X'

	decoded, err := base64.StdEncoding.DecodeString(req.Payload().File)
	if err != nil {
		t.Fatalf("Expected valid base64, got %v", err)
	}
	if string(decoded) != "%PDF-1.4 test" {
		t.Errorf("Expected request to keep its own copy, got '%s'", decoded)
	}
	if req.JobDescription() != "Go engineer" {
		t.Errorf("Expected trimmed job description, got '%s'", req.JobDescription())
	}
}

func TestPayloadOmitsEmptyJobDescription(t *testing.T) {
	req := NewAnalysisRequest("cv.pdf", []byte("%PDF"), "   ")
	if req.HasJobDescription() {
		t.Error("Expected blank job description to be treated as absent")
	}

	body, err := json.Marshal(req.Payload())
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}
	if strings.Contains(string(body), "job_description") {
		t.Errorf("Expected job_description to be omitted, got %s", body)
	}
}

func TestAnalysisResultValidate(t *testing.T) {
	over := 101
	ok := 70
	tests := []struct {
		name        string
		result      AnalysisResult
		expectError bool
	}{
		{"valid", AnalysisResult{OverallScore: 80, ATSScore: 75, SectionScores: map[string]int{"skills": 90}, JobMatchScore: &ok}, false},
		{"overall out of range", AnalysisResult{OverallScore: 120}, true},
		{"negative ats", AnalysisResult{ATSScore: -1}, true},
		{"section out of range", AnalysisResult{SectionScores: map[string]int{"clarity": 200}}, true},
		{"job match out of range", AnalysisResult{JobMatchScore: &over}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Validate()
			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestProgressEventValidate(t *testing.T) {
	if err := (ProgressEvent{Stage: StageExtracting, Progress: 20}).Validate(); err != nil {
		t.Errorf("Expected valid event, got %v", err)
	}
	if err := (ProgressEvent{Stage: StageExtracting, Progress: 150}).Validate(); err == nil {
		t.Error("Expected out-of-range progress to fail")
	}
	if err := (ProgressEvent{Progress: 10}).Validate(); err == nil {
		t.Error("Expected missing stage to fail")
	}
}

func TestErrorBodyText(t *testing.T) {
	if got := (ErrorBody{Error: "Invalid API key", Message: "The provided API key is invalid"}).Text(); got != "The provided API key is invalid" {
		t.Errorf("Expected message to win, got '%s'", got)
	}
	if got := (ErrorBody{Error: "Processing failed"}).Text(); got != "Processing failed" {
		t.Errorf("Expected error fallback, got '%s'", got)
	}
}
