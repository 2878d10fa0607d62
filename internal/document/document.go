// Package document loads résumé PDFs and checks them before they are sent
// to the analysis backend.
package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"resumeinsight/internal/errors"
	"resumeinsight/internal/types"
	"resumeinsight/internal/utils"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxSize matches the backend upload limit
const DefaultMaxSize int64 = 16 * 1024 * 1024

var pdfMagic = []byte("%PDF-")

// Document is a validated résumé PDF
type Document struct {
	Name  string
	Data  []byte
	Pages int
}

// Size returns the document size in bytes
func (d *Document) Size() int64 {
	return int64(len(d.Data))
}

// Request builds an analysis request for the document
func (d *Document) Request(jobDescription string) types.AnalysisRequest {
	return types.NewAnalysisRequest(d.Name, d.Data, jobDescription)
}

// Load reads and validates the PDF at path
func Load(path string, maxSize int64) (*Document, error) {
	info, err := utils.ValidateInputFile(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotFound, "cannot open résumé file", err).
			WithContext("path", path)
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if info.Size() > maxSize {
		return nil, tooLarge(filepath.Base(path), info.Size(), maxSize)
	}

	data, err := os.ReadFile(path) // #nosec G304 -- user-provided résumé path
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read résumé file", err).
			WithContext("path", path)
	}
	return FromBytes(filepath.Base(path), data, maxSize)
}

// FromUpload reads at most maxSize bytes from r and validates them
func FromUpload(name string, r io.Reader, maxSize int64) (*Document, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read uploaded file", err)
	}
	return FromBytes(name, data, maxSize)
}

// FromBytes validates data as a résumé PDF named name
func FromBytes(name string, data []byte, maxSize int64) (*Document, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if len(data) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidDocument, "résumé file is empty", nil).
			WithContext("file", name)
	}
	if int64(len(data)) > maxSize {
		return nil, tooLarge(name, int64(len(data)), maxSize)
	}
	if !utils.IsPDFFile(name) {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidDocument,
			fmt.Sprintf("only PDF files are supported, got %q", utils.FileExtension(name)), nil).
			WithContext("file", name)
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidDocument, "file is not a PDF document", nil).
			WithContext("file", name)
	}

	pages, err := countPages(data)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidDocument, "PDF document could not be parsed", err).
			WithContext("file", name)
	}
	if pages < 1 {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidDocument, "PDF document has no pages", nil).
			WithContext("file", name)
	}

	return &Document{Name: name, Data: data, Pages: pages}, nil
}

// countPages recovers from the panics the pdf package raises on some malformed inputs
func countPages(data []byte) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}

func tooLarge(name string, size, maxSize int64) error {
	return errors.NewValidationError(errors.ErrCodeFileTooLarge,
		fmt.Sprintf("résumé file is %s, the limit is %s", utils.FormatFileSize(size), utils.FormatFileSize(maxSize)), nil).
		WithContext("file", name).
		WithContext("size", size)
}

// JobDescription resolves the job description from an inline value or a file.
// The inline value wins when both are set.
func JobDescription(inline, path string) (string, error) {
	if text := strings.TrimSpace(inline); text != "" {
		return text, nil
	}
	if path == "" {
		return "", nil
	}
	if _, err := utils.ValidateInputFile(path); err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotFound, "cannot open job description file", err).
			WithContext("path", path)
	}
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided job description path
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read job description file", err).
			WithContext("path", path)
	}
	return strings.TrimSpace(string(data)), nil
}
