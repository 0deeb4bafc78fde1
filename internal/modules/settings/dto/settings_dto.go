package dto

import "io"

type QRCodeFile struct {
	Reader      io.Reader
	FileName    string
	ContentType string
	Size        int64
}

type QRCodeResponse struct {
	Message   string `json:"message"`
	QRCodeURL string `json:"qrCodeUrl"`
}
