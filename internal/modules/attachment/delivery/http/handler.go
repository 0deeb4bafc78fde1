package handler

import (
	"errors"
	"net/http"

	"anoa.com/yogaschool/internal/modules/attachment/dto"
	attachmentService "anoa.com/yogaschool/internal/modules/attachment/service"
	"anoa.com/yogaschool/pkg/apperror"
	"anoa.com/yogaschool/pkg/response"
	"github.com/gin-gonic/gin"
)

type AttachmentHandler struct {
	service attachmentService.AttachmentService
}

func NewAttachmentHandler(service attachmentService.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{service: service}
}

func (h *AttachmentHandler) UploadChatFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.ResponseError(c, apperror.Wrap(apperror.ErrPayloadTooLarge, "File too large"))
			return
		}
		response.ResponseError(c, apperror.Wrap(apperror.ErrBadRequest, "No file uploaded"))
		return
	}

	userID, err := response.ResolveActor(c, c.PostForm("userId"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.ResponseError(c, apperror.Wrap(apperror.ErrBadRequest, "Failed to read file"))
		return
	}
	defer file.Close()

	res, err := h.service.UploadChatFile(c.Request.Context(), userID, dto.UploadFile{
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
