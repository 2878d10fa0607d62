package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateInputFile checks that path names an existing regular file
func ValidateInputFile(filename string) (os.FileInfo, error) {
	if filename == "" {
		return nil, fmt.Errorf("filename cannot be empty")
	}

	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file does not exist: %s", filename)
		}
		return nil, fmt.Errorf("cannot access file %s: %w", filename, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", filename)
	}
	return info, nil
}

// ValidateOutputFile checks if the output file path is valid
func ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", dir, err)
			}
		}
	}
	return nil
}

// FileExtension returns the file extension in lowercase
func FileExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// IsPDFFile checks the extension only
func IsPDFFile(filename string) bool {
	return FileExtension(filename) == ".pdf"
}

// FormatExtension maps an output format to a file extension
func FormatExtension(format string) string {
	switch format {
	case "json":
		return ".json"
	case "markdown":
		return ".md"
	case "yaml":
		return ".yaml"
	default:
		return ".txt"
	}
}

// FormatFileSize returns a human-readable file size
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
