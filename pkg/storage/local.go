package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStoragePrefix is the URL prefix the server mounts the upload directory on.
const LocalStoragePrefix = "/uploads"

type localStorage struct {
	baseDir string
}

// NewLocalStorage stores files below baseDir and returns URLs under LocalStoragePrefix.
func NewLocalStorage(baseDir string) (FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &localStorage{baseDir: baseDir}, nil
}

func (s *localStorage) UploadFile(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	folder = filepath.Clean("/" + folder)[1:]
	dir := filepath.Join(s.baseDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create folder %s: %w", folder, err)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	base := sanitizeName(strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName)))
	name := fmt.Sprintf("%s-%d-%s%s", base, time.Now().UnixMilli(), uuid.NewString()[:8], ext)

	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	return LocalStoragePrefix + "/" + filepath.ToSlash(filepath.Join(folder, name)), nil
}

func (s *localStorage) DeleteFile(ctx context.Context, fileURL string) error {
	rel := strings.TrimPrefix(fileURL, LocalStoragePrefix+"/")
	if rel == fileURL || rel == "" {
		return fmt.Errorf("not a local upload URL: %s", fileURL)
	}

	clean := filepath.Clean("/" + rel)[1:]
	if clean != filepath.FromSlash(rel) {
		return fmt.Errorf("invalid upload path: %s", fileURL)
	}

	err := os.Remove(filepath.Join(s.baseDir, clean))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
