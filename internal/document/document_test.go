package document

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"resumeinsight/internal/document/documenttest"
	"resumeinsight/internal/errors"
)

func TestFromBytes(t *testing.T) {
	valid := documenttest.MinimalPDF(2)

	tests := []struct {
		name         string
		fileName     string
		data         []byte
		maxSize      int64
		expectedCode string
	}{
		{name: "valid PDF", fileName: "resume.pdf", data: valid, maxSize: DefaultMaxSize},
		{name: "uppercase extension", fileName: "RESUME.PDF", data: valid, maxSize: DefaultMaxSize},
		{name: "empty file", fileName: "resume.pdf", data: nil, maxSize: DefaultMaxSize, expectedCode: errors.ErrCodeInvalidDocument},
		{name: "too large", fileName: "resume.pdf", data: valid, maxSize: 64, expectedCode: errors.ErrCodeFileTooLarge},
		{name: "wrong extension", fileName: "resume.docx", data: valid, maxSize: DefaultMaxSize, expectedCode: errors.ErrCodeInvalidDocument},
		{name: "missing magic", fileName: "resume.pdf", data: []byte("hello world"), maxSize: DefaultMaxSize, expectedCode: errors.ErrCodeInvalidDocument},
		{name: "truncated PDF", fileName: "resume.pdf", data: []byte("%PDF-1.4\n1 0 obj\n"), maxSize: DefaultMaxSize, expectedCode: errors.ErrCodeInvalidDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := FromBytes(tt.fileName, tt.data, tt.maxSize)
			if tt.expectedCode != "" {
				appErr, ok := errors.AsAppError(err)
				if !ok {
					t.Fatalf("Expected AppError, got %v", err)
				}
				if appErr.Code != tt.expectedCode {
					t.Errorf("Expected code %s, got %s", tt.expectedCode, appErr.Code)
				}
				if appErr.Type != errors.ErrorTypeValidation {
					t.Errorf("Expected validation error, got %s", appErr.Type)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if doc.Pages != 2 {
				t.Errorf("Expected 2 pages, got %d", doc.Pages)
			}
			if doc.Size() != int64(len(tt.data)) {
				t.Errorf("Expected size %d, got %d", len(tt.data), doc.Size())
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cv.pdf")
	if err := os.WriteFile(path, documenttest.MinimalPDF(1), 0600); err != nil {
		t.Fatalf("Failed to write PDF: %v", err)
	}

	doc, err := Load(path, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if doc.Name != "cv.pdf" {
		t.Errorf("Expected name 'cv.pdf', got '%s'", doc.Name)
	}
	if doc.Pages != 1 {
		t.Errorf("Expected 1 page, got %d", doc.Pages)
	}

	_, err = Load(filepath.Join(dir, "missing.pdf"), 0)
	if !errors.IsType(err, errors.ErrorTypeIO) {
		t.Errorf("Expected IO error for missing file, got %v", err)
	}

	_, err = Load(path, 32)
	if !errors.IsType(err, errors.ErrorTypeValidation) {
		t.Errorf("Expected validation error for oversized file, got %v", err)
	}
}

func TestFromUploadStopsAtLimit(t *testing.T) {
	data := documenttest.MinimalPDF(1)
	_, err := FromUpload("upload.pdf", bytes.NewReader(data), int64(len(data)-1))
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeFileTooLarge {
		t.Fatalf("Expected FILE_TOO_LARGE, got %v", err)
	}

	doc, err := FromUpload("upload.pdf", bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Expected upload at the limit to pass, got %v", err)
	}
	if doc.Size() != int64(len(data)) {
		t.Errorf("Expected size %d, got %d", len(data), doc.Size())
	}
}

func TestRequestCopiesData(t *testing.T) {
	doc, err := FromBytes("resume.pdf", documenttest.MinimalPDF(1), 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	req := doc.Request("  Senior Go engineer  ")
	doc.Data[0] = 'X'

	if req.JobDescription() != "Senior Go engineer" {
		t.Errorf("Expected trimmed job description, got '%s'", req.JobDescription())
	}
	if !strings.HasPrefix(req.Payload().File, "JVBERi") {
		t.Errorf("Expected payload to keep the original %%PDF- bytes, got prefix %q", req.Payload().File[:6])
	}
}

func TestJobDescription(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.txt")
	if err := os.WriteFile(path, []byte("\nBackend role\n"), 0600); err != nil {
		t.Fatalf("Failed to write job file: %v", err)
	}

	tests := []struct {
		name        string
		inline      string
		path        string
		expected    string
		expectError bool
	}{
		{name: "inline wins", inline: "Inline role", path: path, expected: "Inline role"},
		{name: "from file", path: path, expected: "Backend role"},
		{name: "neither", expected: ""},
		{name: "missing file", path: filepath.Join(dir, "nope.txt"), expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JobDescription(tt.inline, tt.path)
			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}
