package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"anoa.com/yogaschool/internal/entity"
	"anoa.com/yogaschool/internal/middleware"
	settingsRepo "anoa.com/yogaschool/internal/modules/settings/repository"
	settingsService "anoa.com/yogaschool/internal/modules/settings/service"
	userRepo "anoa.com/yogaschool/internal/modules/user/repository"
	"anoa.com/yogaschool/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "settings-handler-secret"
	maxQRBytes = 5 << 20
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router  *gin.Engine
	admin   *entity.User
	teacher *entity.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	users := userRepo.NewMemoryUserRepository()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		admin:   &entity.User{Name: "Ada", Email: "ada@yoga.test", PasswordHash: "x"},
		teacher: &entity.User{Name: "Tara", Email: "tara@yoga.test", PasswordHash: "x"},
	}
	require.NoError(t, users.Register(context.Background(), env.admin))
	require.NoError(t, users.Register(context.Background(), env.teacher))

	auth := middleware.NewAuthMiddleware(users, testSecret)
	h := NewSettingsHandler(settingsService.NewSettingsService(settingsRepo.NewMemorySettingsRepository(), files, maxQRBytes))

	r := gin.New()
	settings := r.Group("/api/settings")
	settings.GET("", h.GetSettings)
	admin := settings.Group("", auth.RequireAuth(), auth.RequireAdmin())
	admin.POST("/qr-code", middleware.LimitUploadSize(maxQRBytes), h.UploadQRCode)
	admin.DELETE("/qr-code", h.DeleteQRCode)
	env.router = r
	return env
}

func (env *testEnv) do(t *testing.T, as *entity.User, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if as != nil {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   as.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+signed)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func qrUpload(t *testing.T, fileName, contentType string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="qrCode"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	w, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = w.Write(body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/settings/qr-code", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func readSettings(t *testing.T, env *testEnv) map[string]any {
	t.Helper()
	w := env.do(t, nil, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestQRCodeLifecycle(t *testing.T) {
	env := newTestEnv(t)

	body := readSettings(t, env)
	assert.Contains(t, body, "qrCodeUrl")
	assert.Nil(t, body["qrCodeUrl"])

	w := env.do(t, env.admin, qrUpload(t, "upi.png", "image/png", []byte("png")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var uploaded map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))
	assert.Equal(t, "QR code uploaded successfully", uploaded["message"])

	body = readSettings(t, env)
	assert.Equal(t, uploaded["qrCodeUrl"], body["qrCodeUrl"])

	w = env.do(t, env.admin, httptest.NewRequest(http.MethodDelete, "/api/settings/qr-code", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, env.admin, httptest.NewRequest(http.MethodDelete, "/api/settings/qr-code", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQRCodeMutationsRequireAdmin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, env.teacher, qrUpload(t, "upi.png", "image/png", []byte("png")))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, nil, httptest.NewRequest(http.MethodDelete, "/api/settings/qr-code", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQRCodeUploadValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, env.admin, qrUpload(t, "upi.pdf", "application/pdf", []byte("pdf")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, env.admin, qrUpload(t, "upi.png", "image/png", bytes.Repeat([]byte("q"), maxQRBytes+128*1024)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
