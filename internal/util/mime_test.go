package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectMIME(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	assert.Equal(t, "image/png", DetectMIME(png))

	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}
	assert.Equal(t, "image/jpeg", DetectMIME(jpeg))

	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`)
	assert.Equal(t, "image/svg+xml", DetectMIME(svg))

	xmlSvg := []byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg"></svg>`)
	assert.Equal(t, "image/svg+xml", DetectMIME(xmlSvg))

	assert.Equal(t, "application/pdf", DetectMIME([]byte("%PDF-1.4 something")))
}

func TestIsImageMIME(t *testing.T) {
	assert.True(t, IsImageMIME("image/png"))
	assert.True(t, IsImageMIME(" IMAGE/JPEG "))
	assert.False(t, IsImageMIME("application/pdf"))
	assert.False(t, IsImageMIME(""))
}

func TestExtensionForMIME(t *testing.T) {
	assert.Equal(t, ".png", ExtensionForMIME("image/png"))
	assert.Equal(t, ".jpg", ExtensionForMIME("image/jpeg"))
	assert.Equal(t, ".svg", ExtensionForMIME("image/svg+xml"))
	assert.Equal(t, "", ExtensionForMIME("application/octet-stream"))
}
