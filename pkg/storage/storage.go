package storage

import (
	"context"
	"io"
)

// FileStorage is the contract for attachment, avatar and QR code storage.
type FileStorage interface {
	// UploadFile stores the content of r under folder and returns the URL clients should use.
	UploadFile(ctx context.Context, r io.Reader, folder, fileName string) (string, error)
	// DeleteFile removes a file previously returned by UploadFile.
	DeleteFile(ctx context.Context, fileURL string) error
}
