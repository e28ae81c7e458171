package images

import (
	"net/http"
	"strings"
)

// Formats the thumbnailer can decode. WebP needs cgo and is not supported.
var allowedImageContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/bmp":  {},
}

func detectAllowedImageContentType(imageData []byte) (string, bool) {
	if len(imageData) == 0 {
		return "", false
	}

	contentType := strings.ToLower(strings.TrimSpace(http.DetectContentType(imageData)))
	if contentType == "image/jpg" {
		contentType = "image/jpeg"
	}

	_, ok := allowedImageContentTypes[contentType]
	return contentType, ok
}
