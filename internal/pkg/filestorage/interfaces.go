package filestorage

import (
	"context"
	"mime/multipart"
)

// StoredFile describes a file written to storage
type StoredFile struct {
	Path     string // Storage-relative path recorded in the database
	Filename string // Original filename
	FileSize int64  // Size in bytes
	MimeType string // Sniffed MIME type
}

// FileStorage stores application documents
type FileStorage interface {
	// Save validates and writes an upload under subPath
	Save(ctx context.Context, fileHeader *multipart.FileHeader, subPath string, rules UploadRules) (*StoredFile, error)

	// Delete removes a stored file; missing files are not an error
	Delete(path string) error

	// FullPath maps a stored path to its location on disk
	FullPath(path string) (string, error)
}
