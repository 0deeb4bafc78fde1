package handler

import (
	"errors"
	"net/http"

	"anoa.com/yogaschool/internal/modules/settings/dto"
	settingsService "anoa.com/yogaschool/internal/modules/settings/service"
	"anoa.com/yogaschool/pkg/apperror"
	"anoa.com/yogaschool/pkg/response"
	"github.com/gin-gonic/gin"
)

type SettingsHandler struct {
	settingsService settingsService.SettingsService
}

func NewSettingsHandler(settingsService settingsService.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

func (h *SettingsHandler) GetSettings(c *gin.Context) {
	setting, err := h.settingsService.GetSettings(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, setting)
}

func (h *SettingsHandler) UploadQRCode(c *gin.Context) {
	fileHeader, err := c.FormFile("qrCode")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.ResponseError(c, apperror.Wrap(apperror.ErrPayloadTooLarge, "File too large"))
			return
		}
		response.ResponseError(c, apperror.Wrap(apperror.ErrBadRequest, "No file uploaded"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.ResponseError(c, apperror.Wrap(apperror.ErrBadRequest, "Failed to read file"))
		return
	}
	defer file.Close()

	res, err := h.settingsService.UploadQRCode(c.Request.Context(), dto.QRCodeFile{
		Reader:      file,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *SettingsHandler) DeleteQRCode(c *gin.Context) {
	if err := h.settingsService.DeleteQRCode(c.Request.Context()); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "QR code deleted successfully"})
}
