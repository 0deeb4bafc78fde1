package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"anoa.com/yogaschool/internal/modules/settings/dto"
	"anoa.com/yogaschool/internal/modules/settings/repository"
	"anoa.com/yogaschool/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	files   map[string]string
	deleted []string
}

func (f *fakeStorage) UploadFile(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("/uploads/%s/%d-%s", folder, len(f.files)+len(f.deleted), fileName)
	f.files[url] = string(b)
	return url, nil
}

func (f *fakeStorage) DeleteFile(ctx context.Context, fileURL string) error {
	delete(f.files, fileURL)
	f.deleted = append(f.deleted, fileURL)
	return nil
}

func newTestService() (SettingsService, *fakeStorage) {
	files := &fakeStorage{files: make(map[string]string)}
	return NewSettingsService(repository.NewMemorySettingsRepository(), files, 64), files
}

func qr(name, contentType, body string) dto.QRCodeFile {
	return dto.QRCodeFile{Reader: strings.NewReader(body), FileName: name, ContentType: contentType, Size: int64(len(body))}
}

func TestGetSettingsCreatesRow(t *testing.T) {
	svc, _ := newTestService()

	setting, err := svc.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Nil(t, setting.QRCodeURL)
}

func TestUploadQRCodeReplacesPrevious(t *testing.T) {
	svc, files := newTestService()
	ctx := context.Background()

	first, err := svc.UploadQRCode(ctx, qr("upi.PNG", "image/png", "first"))
	require.NoError(t, err)
	assert.Equal(t, "QR code uploaded successfully", first.Message)
	assert.Equal(t, "/uploads/settings/0-qr.png", first.QRCodeURL)

	second, err := svc.UploadQRCode(ctx, qr("upi.jpg", "image/jpeg", "second"))
	require.NoError(t, err)

	setting, err := svc.GetSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, setting.QRCodeURL)
	assert.Equal(t, second.QRCodeURL, *setting.QRCodeURL)
	assert.Equal(t, []string{first.QRCodeURL}, files.deleted)
	assert.Len(t, files.files, 1)
}

func TestUploadQRCodeRejections(t *testing.T) {
	svc, files := newTestService()
	ctx := context.Background()

	_, err := svc.UploadQRCode(ctx, qr("upi.pdf", "application/pdf", "x"))
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	_, err = svc.UploadQRCode(ctx, qr("upi.png", "image/png", strings.Repeat("x", 65)))
	assert.ErrorIs(t, err, apperror.ErrPayloadTooLarge)

	assert.Empty(t, files.files)
}

func TestDeleteQRCode(t *testing.T) {
	svc, files := newTestService()
	ctx := context.Background()

	err := svc.DeleteQRCode(ctx)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, "No QR code found", apperror.Message(err))

	res, err := svc.UploadQRCode(ctx, qr("upi.png", "image/png", "x"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteQRCode(ctx))
	assert.Equal(t, []string{res.QRCodeURL}, files.deleted)

	setting, err := svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Nil(t, setting.QRCodeURL)

	assert.ErrorIs(t, svc.DeleteQRCode(ctx), apperror.ErrNotFound)
}
