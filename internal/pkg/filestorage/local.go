package filestorage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/yigit/scholarsphere/internal/pkg/logger"
)

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string // The root directory where files will be stored
}

var _ FileStorage = (*LocalStorage)(nil)

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{basePath: basePath}, nil
}

// Save validates the upload and copies it to basePath/subPath under a random name.
func (ls *LocalStorage) Save(ctx context.Context, fileHeader *multipart.FileHeader, subPath string, rules UploadRules) (*StoredFile, error) {
	mimeType, err := ValidateUpload(fileHeader, rules)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	relDir := filepath.Clean(subPath)
	if strings.HasPrefix(relDir, "..") || filepath.IsAbs(relDir) {
		return nil, fmt.Errorf("invalid storage path: %s", subPath)
	}
	fullDirPath := filepath.Join(ls.basePath, relDir)
	if err := os.MkdirAll(fullDirPath, 0o755); err != nil {
		logger.Error().Err(err).Str("path", fullDirPath).Msg("Failed to create subdirectory")
		return nil, fmt.Errorf("failed to create subdirectory: %w", err)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	uniqueFilename := uuid.New().String() + "." + Extension(fileHeader.Filename)
	dstPath := filepath.Join(fullDirPath, uniqueFilename)

	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, src)
	if err != nil {
		_ = os.Remove(dstPath)
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy uploaded file content")
		return nil, fmt.Errorf("failed to save file content: %w", err)
	}

	stored := &StoredFile{
		Path:     filepath.ToSlash(filepath.Join(relDir, uniqueFilename)),
		Filename: filepath.Base(fileHeader.Filename),
		FileSize: written,
		MimeType: mimeType,
	}
	logger.Debug().Str("filename", stored.Filename).Str("path", stored.Path).Msg("File saved")
	return stored, nil
}

// FullPath resolves a stored path, refusing paths that escape basePath.
func (ls *LocalStorage) FullPath(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid file path: %s", path)
	}
	return filepath.Join(ls.basePath, clean), nil
}

// Delete removes a stored file. Missing files count as deleted.
func (ls *LocalStorage) Delete(path string) error {
	if path == "" {
		return nil
	}
	physicalPath, err := ls.FullPath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(physicalPath); err != nil && !os.IsNotExist(err) {
		logger.Error().Err(err).Str("path", physicalPath).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
