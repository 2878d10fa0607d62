package common

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"resumeinsight/internal/document/documenttest"
	"resumeinsight/internal/errors"
	"resumeinsight/internal/types"
)

func TestFileProcessorLoadDocument(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "resume.pdf")
	if err := os.WriteFile(good, documenttest.MinimalPDF(2), 0600); err != nil {
		t.Fatal(err)
	}
	text := filepath.Join(dir, "resume.txt")
	if err := os.WriteFile(text, []byte("plain text"), 0600); err != nil {
		t.Fatal(err)
	}

	fp := NewFileProcessor(nil, 0)

	doc, err := fp.LoadDocument(good)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if doc.Pages != 2 {
		t.Errorf("Expected 2 pages, got %d", doc.Pages)
	}

	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing file", filepath.Join(dir, "missing.pdf"), "INVALID_INPUT_FILE"},
		{"directory", dir, "INVALID_INPUT_FILE"},
		{"not a pdf", text, errors.ErrCodeInvalidDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fp.LoadDocument(tt.path)
			appErr, ok := errors.AsAppError(err)
			if !ok {
				t.Fatalf("Expected AppError, got %v", err)
			}
			if appErr.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, appErr.Code)
			}
		})
	}
}

func TestFileProcessorWriteAndRead(t *testing.T) {
	fp := NewFileProcessor(nil, 0)
	path := filepath.Join(t.TempDir(), "nested", "out.txt")

	if err := fp.WriteFile(path, "hello"); err != nil {
		t.Fatalf("Unexpected write error: %v", err)
	}
	content, err := fp.ReadFile(path)
	if err != nil {
		t.Fatalf("Unexpected read error: %v", err)
	}
	if string(content) != "hello" {
		t.Errorf("Expected 'hello', got %q", content)
	}

	_, err = fp.ReadFile(filepath.Join(t.TempDir(), "absent"))
	if appErr, ok := errors.AsAppError(err); !ok || appErr.Code != errors.ErrCodeFileNotFound {
		t.Errorf("Expected FILE_NOT_FOUND, got %v", err)
	}
}

func TestOutputHandler(t *testing.T) {
	result := types.AnalysisResult{OverallScore: 75, ATSScore: 60}

	t.Run("stdout", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewOutputHandlerWithWriter(nil, &buf)
		if err := handler.HandleOutput(&result, CommandConfig{OutputFormat: "text"}); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Overall Score: 75/100 (Good)") {
			t.Errorf("Unexpected output:\n%s", buf.String())
		}
	})

	t.Run("file", func(t *testing.T) {
		var buf bytes.Buffer
		path := filepath.Join(t.TempDir(), "out", "result.json")
		handler := NewOutputHandlerWithWriter(nil, &buf)
		if err := handler.HandleOutput(result, CommandConfig{OutputFile: path, OutputFormat: "json"}); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if buf.Len() != 0 {
			t.Errorf("Expected nothing on stdout, got %q", buf.String())
		}
		written, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Expected output file: %v", err)
		}
		if !strings.Contains(string(written), `"overall_score": 75`) {
			t.Errorf("Unexpected file content:\n%s", written)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		handler := NewOutputHandlerWithWriter(nil, &bytes.Buffer{})
		err := handler.HandleOutput(result, CommandConfig{OutputFormat: "xml"})
		if appErr, ok := errors.AsAppError(err); !ok || appErr.Code != errors.ErrCodeInvalidFormat {
			t.Errorf("Expected INVALID_FORMAT, got %v", err)
		}
	})
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	printer := NewProgressPrinter(&buf)

	if printer.Last() != -1 {
		t.Errorf("Expected -1 before any event, got %d", printer.Last())
	}

	printer.Print(types.ProgressEvent{Stage: types.StageATSAnalysis, Progress: 40, Message: "Checking layout"})
	printer.Print(types.ProgressEvent{Stage: "custom_stage", Progress: 100})
	printer.Waiting(2, fmt.Errorf("connection refused"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	expected := []string{
		"[ 40%] ATS analysis: Checking layout",
		"[100%] custom_stage",
		"Waiting for analysis service (attempt 2): connection refused",
	}
	if len(lines) != len(expected) {
		t.Fatalf("Expected %d lines, got %d:\n%s", len(expected), len(lines), buf.String())
	}
	for i, want := range expected {
		if lines[i] != want {
			t.Errorf("Line %d: expected %q, got %q", i, want, lines[i])
		}
	}
	if printer.Last() != 100 {
		t.Errorf("Expected last 100, got %d", printer.Last())
	}
}
