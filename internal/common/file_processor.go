package common

import (
	"fmt"
	"os"
	"path/filepath"

	"resumeinsight/internal/document"
	"resumeinsight/internal/errors"
	"resumeinsight/internal/utils"
)

// FileProcessor handles the file side of CLI commands
type FileProcessor struct {
	logger  *errors.Logger
	maxSize int64
}

// NewFileProcessor creates a new file processor instance
func NewFileProcessor(logger *errors.Logger, maxSize int64) *FileProcessor {
	if logger == nil {
		logger = errors.Discard()
	}
	if maxSize <= 0 {
		maxSize = document.DefaultMaxSize
	}
	return &FileProcessor{logger: logger, maxSize: maxSize}
}

// LoadDocument validates and loads a résumé PDF
func (fp *FileProcessor) LoadDocument(filename string) (*document.Document, error) {
	if _, err := utils.ValidateInputFile(filename); err != nil {
		return nil, errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Invalid file %s", filename), err)
	}

	doc, err := document.Load(filename, fp.maxSize)
	if err != nil {
		return nil, err
	}

	fp.logger.Debug("Loaded résumé",
		"filename", filename, "size", utils.FormatFileSize(doc.Size()), "pages", doc.Pages)
	return doc, nil
}

// ReadFile reads a whole file with IO error mapping
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	content, err := os.ReadFile(filename) // #nosec G304 -- user-provided path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	return content, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	err := os.WriteFile(filename, []byte(content), 0600)
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
