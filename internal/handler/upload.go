package handler

import (
	"errors"
	"net/http"

	"github.com/rehber/rehber/internal/repository"
)

// UploadHandler stores contact photos.
type UploadHandler struct {
	images repository.ImageStore
}

func NewUploadHandler(images repository.ImageStore) *UploadHandler {
	return &UploadHandler{images: images}
}

// Upload handles POST /api/upload. The body is the raw image; X-File-Ext
// and X-Contact-Name pick the stored file name.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	url, err := h.images.Save(r.Context(), r.Header.Get("X-Contact-Name"), r.Header.Get("X-File-Ext"), r.Body)
	switch {
	case errors.Is(err, repository.ErrImageTooLarge):
		writeJSONError(w, http.StatusRequestEntityTooLarge, "image too large")
	case err != nil:
		writeServiceError(w, err)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	}
}
