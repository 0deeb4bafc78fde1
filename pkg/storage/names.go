package storage

import (
	"path/filepath"
	"strings"
)

func isImageName(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".gif", ".webp":
		return true
	}
	return false
}

// IsImageUpload accepts jpeg, png, gif and webp uploads. An empty content type is
// judged by the extension alone.
func IsImageUpload(fileName, contentType string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	default:
		return false
	}
	return contentType == "" || strings.HasPrefix(contentType, "image/")
}

// sanitizeName keeps letters, digits, dash and underscore.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
