package filestorage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/hverma/enrollhub/internal/pkg/apperrors"
	"github.com/hverma/enrollhub/internal/pkg/logger"
)

const defaultExtension = "jpg"

// LocalStorage stores attachments on the local filesystem.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a LocalStorage rooted at basePath, creating the
// directory if it does not exist.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path %s: %w", basePath, err)
	}

	if err := os.MkdirAll(absPath, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", absPath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", absPath, err)
	}

	return &LocalStorage{basePath: absPath}, nil
}

// Store writes the upload as <recordKey>_<random-token>.<ext> and returns the
// absolute path. The extension comes from the original filename, defaulting
// to jpg when none is present.
func (ls *LocalStorage) Store(upload *Upload, recordKey string) (string, error) {
	if upload.IsEmpty() {
		return "", apperrors.NewValidationError("attachment payload is empty")
	}

	ext := strings.TrimPrefix(filepath.Ext(upload.Filename), ".")
	if ext == "" {
		ext = defaultExtension
	}

	filename := fmt.Sprintf("%s_%s.%s", recordKey, uuid.New().String(), ext)
	dstPath := filepath.Join(ls.basePath, filename)

	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create attachment file")
		return "", apperrors.NewStorageError("failed to create attachment file", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, upload.Reader); err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to write attachment content")
		// Remove the partially written file
		_ = os.Remove(dstPath)
		return "", apperrors.NewStorageError("failed to write attachment content", err)
	}

	logger.Info().Str("filename", upload.Filename).Str("saved_as", filename).Msg("Attachment stored")
	return dstPath, nil
}

// Retrieve opens a stored attachment and probes its content type.
func (ls *LocalStorage) Retrieve(storagePath string) (io.ReadSeekCloser, string, error) {
	if storagePath == "" {
		return nil, "", apperrors.NewResourceNotFoundError("attachment path is empty")
	}

	if _, err := os.Stat(storagePath); err != nil {
		if os.IsNotExist(err) {
			return nil, "", apperrors.NewResourceNotFoundError("attachment not found")
		}
		return nil, "", apperrors.NewStorageError("failed to stat attachment", err)
	}

	mtype, err := mimetype.DetectFile(storagePath)
	if err != nil {
		return nil, "", apperrors.NewStorageError("failed to probe attachment content type", err)
	}

	file, err := os.Open(storagePath)
	if err != nil {
		return nil, "", apperrors.NewStorageError("failed to open attachment", err)
	}

	return file, mtype.String(), nil
}

// Delete removes a stored attachment. A missing file counts as success.
func (ls *LocalStorage) Delete(storagePath string) error {
	if storagePath == "" {
		return nil
	}

	if _, err := os.Stat(storagePath); os.IsNotExist(err) {
		logger.Warn().Str("path", storagePath).Msg("Attachment to delete does not exist")
		return nil
	}

	if err := os.Remove(storagePath); err != nil {
		logger.Error().Err(err).Str("path", storagePath).Msg("Failed to delete attachment")
		return apperrors.NewStorageError("failed to delete attachment", err)
	}

	logger.Info().Str("path", storagePath).Msg("Attachment deleted")
	return nil
}
