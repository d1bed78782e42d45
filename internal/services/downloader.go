package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/trobanga/genograb/internal/lib"
)

// DownloadResult describes the outcome of a single file download
type DownloadResult struct {
	Destination string
	Bytes       int64
	Skipped     bool // Destination already existed, nothing was fetched
}

// FileExists reports whether path exists (any file type)
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DownloadToFile fetches url into destPath unless destPath already exists.
// The body is written to a temporary sibling file and renamed into place, so an
// interrupted download never leaves a partial file at destPath.
func DownloadToFile(ctx context.Context, httpClient *HTTPClient, url string, destPath string, logger *lib.Logger) (DownloadResult, error) {
	result := DownloadResult{Destination: destPath}

	if FileExists(destPath) {
		logger.Debug("File exists, skipping download", "file", destPath)
		result.Skipped = true
		return result, nil
	}

	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return result, fmt.Errorf("failed to create destination directory: %w", err)
	}

	tempPath := filepath.Join(destDir, fmt.Sprintf(".%s.part.%s", filepath.Base(destPath), uuid.New().String()))
	tempFile, err := os.Create(tempPath)
	if err != nil {
		return result, fmt.Errorf("failed to create destination file: %w", err)
	}

	bytesDownloaded, err := httpClient.Download(ctx, url, tempFile)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tempPath)
		return result, fmt.Errorf("download of %s failed: %w", url, err)
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		_ = os.Remove(tempPath)
		return result, fmt.Errorf("failed to move download into place: %w", err)
	}

	result.Bytes = bytesDownloaded
	logger.Debug("File downloaded", "url", url, "file", destPath, "bytes", bytesDownloaded)
	return result, nil
}

// IsNotExist reports whether err indicates a missing file, including wrapped GenoErrors
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
