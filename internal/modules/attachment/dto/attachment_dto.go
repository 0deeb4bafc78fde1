package dto

import "io"

// UploadFile is a multipart file handed from the handler to the service.
type UploadFile struct {
	Reader      io.Reader
	FileName    string
	ContentType string
	Size        int64
}

type UploadResponse struct {
	Success     bool   `json:"success"`
	FileURL     string `json:"fileUrl"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	MessageType string `json:"messageType"`
}
