package util

import (
	"net/http"
	"strings"
)

// DetectMIME sniffs content by signature, never by file extension. SVG is
// special-cased the same way browsers treat it: an XML prolog or <svg
// root counts.
func DetectMIME(data []byte) string {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}

	detected := http.DetectContentType(head)
	if strings.HasPrefix(detected, "text/xml") || strings.HasPrefix(detected, "text/plain") {
		trimmed := strings.TrimSpace(string(head))
		if strings.HasPrefix(trimmed, "<?xml") || strings.HasPrefix(trimmed, "<svg") {
			return "image/svg+xml"
		}
	}

	if idx := strings.Index(detected, ";"); idx > 0 {
		detected = detected[:idx]
	}
	return detected
}

func IsImageMIME(mimeType string) bool {
	cleaned := strings.ToLower(strings.TrimSpace(mimeType))
	return strings.HasPrefix(cleaned, "image/")
}

// ExtensionForMIME maps a sniffed image type to the extension the stored
// file gets; the client-supplied name is never trusted.
func ExtensionForMIME(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	case "image/tiff":
		return ".tiff"
	case "image/svg+xml":
		return ".svg"
	default:
		return ""
	}
}
