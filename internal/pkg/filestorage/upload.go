package filestorage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
)

var (
	ErrEmptyFile         = errors.New("file is empty")
	ErrFileTooLarge      = errors.New("file exceeds the size limit")
	ErrExtensionRejected = errors.New("file type is not allowed")
	ErrContentMismatch   = errors.New("file content does not match its extension")
)

// GlobalAllowedExtensions applies to every upload regardless of requirement
var GlobalAllowedExtensions = []string{"pdf", "doc", "docx", "jpg", "jpeg", "png", "txt"}

// DefaultMaxUploadBytes is the global per-file cap
const DefaultMaxUploadBytes int64 = 10 << 20

// UploadRules narrows the global limits for one upload
type UploadRules struct {
	AllowedExtensions []string // empty means the global list
	MaxBytes          int64    // zero means the global cap
}

// sniffed content types accepted per extension
var extensionContent = map[string][]string{
	"pdf":  {"application/pdf"},
	"jpg":  {"image/jpeg"},
	"jpeg": {"image/jpeg"},
	"png":  {"image/png"},
	"txt":  {"text/plain"},
	"doc":  {"application/octet-stream", "application/msword"},
	"docx": {"application/zip", "application/octet-stream"},
}

// stored types for formats the sniffer cannot name
var extensionMime = map[string]string{
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"txt":  "text/plain",
}

// Extension returns the lower-case extension of name without the dot
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// ValidateUpload checks size and extension, then sniffs the first 512 bytes
// and returns the MIME type to store.
func ValidateUpload(fileHeader *multipart.FileHeader, rules UploadRules) (string, error) {
	if fileHeader == nil || fileHeader.Size == 0 {
		return "", ErrEmptyFile
	}

	maxBytes := DefaultMaxUploadBytes
	if rules.MaxBytes > 0 && rules.MaxBytes < maxBytes {
		maxBytes = rules.MaxBytes
	}
	if fileHeader.Size > maxBytes {
		return "", fmt.Errorf("%w: %s is larger than %d MB", ErrFileTooLarge, fileHeader.Filename, maxBytes>>20)
	}

	ext := Extension(fileHeader.Filename)
	if !slices.Contains(GlobalAllowedExtensions, ext) {
		return "", fmt.Errorf("%w: .%s", ErrExtensionRejected, ext)
	}
	if len(rules.AllowedExtensions) > 0 && !slices.Contains(rules.AllowedExtensions, ext) {
		return "", fmt.Errorf("%w: .%s, accepted: %s", ErrExtensionRejected, ext, strings.Join(rules.AllowedExtensions, ", "))
	}

	f, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read uploaded file: %w", err)
	}
	detected := http.DetectContentType(head[:n])

	matched := false
	for _, prefix := range extensionContent[ext] {
		if strings.HasPrefix(detected, prefix) {
			matched = true
			break
		}
	}
	if !matched {
		return "", fmt.Errorf("%w: .%s detected as %s", ErrContentMismatch, ext, detected)
	}

	if m, ok := extensionMime[ext]; ok {
		return m, nil
	}
	return detected, nil
}
