package handler

import (
	"bytes"
	"image"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	// Register decoders used to prove an upload is a real image.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"go-storefront/internal/model"
	"go-storefront/internal/util"
	"go-storefront/pkg/apierror"
)

// UploadHandler accepts product images. The stored name is random and the
// type comes from content sniffing, so neither the client file name nor
// its claimed content type is trusted.
type UploadHandler struct {
	uploadDir string
	minSize   int64
	maxSize   int64
}

func NewUploadHandler(uploadDir string, minSize int64, maxSize int64) *UploadHandler {
	return &UploadHandler{uploadDir: uploadDir, minSize: minSize, maxSize: maxSize}
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+512*1024)
	defer r.Body.Close()

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, apierror.BadRequest("file is required", ""))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxSize+1))
	if err != nil {
		writeError(w, apierror.BadRequest("could not read file", ""))
		return
	}

	size := int64(len(data))
	if size < h.minSize {
		writeError(w, apierror.BadRequest("file is too small", ""))
		return
	}
	if size > h.maxSize {
		writeError(w, apierror.BadRequest("file is too large", ""))
		return
	}

	mimeType := util.DetectMIME(data)
	if !util.IsImageMIME(mimeType) {
		writeError(w, apierror.BadRequest("file must be an image", mimeType))
		return
	}

	// SVG is text and has no raster config; everything else must decode.
	if mimeType != "image/svg+xml" {
		cfg, _, decodeErr := image.DecodeConfig(bytes.NewReader(data))
		if decodeErr != nil || cfg.Width <= 0 || cfg.Height <= 0 {
			writeError(w, apierror.BadRequest("file is not a valid image", ""))
			return
		}
	}

	ext := util.ExtensionForMIME(mimeType)
	name := strings.ReplaceAll(uuid.NewString(), "-", "") + ext

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		writeError(w, err)
		return
	}
	if err := os.WriteFile(filepath.Join(h.uploadDir, name), data, 0o644); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, model.UploadResult{
		FileName: "/uploads/" + name,
		Size:     size,
		MimeType: mimeType,
	}, nil)
}
