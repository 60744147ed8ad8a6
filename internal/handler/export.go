package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/rehber/rehber/internal/export"
	"github.com/rehber/rehber/internal/service"
)

// ExportHandler serves the download endpoints.
type ExportHandler struct {
	svc service.ContactService
}

func NewExportHandler(svc service.ContactService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

func attachment(w http.ResponseWriter, contentType, name string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// VCard handles GET /api/export/vcf?encoding=
func (h *ExportHandler) VCard(w http.ResponseWriter, r *http.Request) {
	enc, err := export.ParseEncoding(r.URL.Query().Get("encoding"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := h.svc.List(r.Context(), "")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := export.VCard(&buf, list, enc); err != nil {
		writeServiceError(w, err)
		return
	}
	attachment(w, enc.ContentType(), export.VCardFileName, buf.Bytes())
}

// CSV handles GET /api/export/csv
func (h *ExportHandler) CSV(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), "")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := export.CSV(&buf, list); err != nil {
		writeServiceError(w, err)
		return
	}
	attachment(w, "text/csv;charset=utf-8", export.CSVFileName, buf.Bytes())
}

// JSON handles GET /api/export/json
func (h *ExportHandler) JSON(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), "")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := export.JSON(&buf, list); err != nil {
		writeServiceError(w, err)
		return
	}
	attachment(w, "application/json", export.JSONFileName, buf.Bytes())
}
