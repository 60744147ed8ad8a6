package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rehber/rehber/internal/phone"
	"github.com/rehber/rehber/internal/repository"
	"github.com/rehber/rehber/internal/service"
	"github.com/rehber/rehber/internal/util/logger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": message,
		},
	})
}

// NotFound answers unknown API routes with the JSON error envelope.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSONError(w, http.StatusNotFound, "Not found")
}

// phoneErrorBody is the 422 payload for a rejected phone entry. The form
// uses field and index to highlight the input.
func phoneErrorBody(e *phone.ValidationError) map[string]any {
	return map[string]any{
		"valid":   false,
		"index":   e.Index,
		"field":   e.Field,
		"value":   e.Value,
		"kind":    e.Kind.String(),
		"message": e.Message(),
	}
}

// writeServiceError maps service and store errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		conflict *service.ConflictError
		phoneErr *phone.ValidationError
		fields   service.FieldErrors
	)
	switch {
	case errors.As(err, &conflict):
		body := map[string]any{
			"status":       "error",
			"message":      conflict.Error(),
			"conflictType": conflict.Type,
			"existingId":   conflict.Existing.ID,
		}
		if conflict.Type == service.ConflictName {
			body["existingContact"] = conflict.Existing
		}
		writeJSON(w, http.StatusConflict, body)
	case errors.As(err, &phoneErr):
		writeJSON(w, http.StatusUnprocessableEntity, phoneErrorBody(phoneErr))
	case errors.As(err, &fields):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": map[string]any{
				"code":    http.StatusUnprocessableEntity,
				"message": "invalid contact",
				"fields":  fields,
			},
		})
	case errors.Is(err, service.ErrMissingInfo), errors.Is(err, service.ErrInvalidPatch):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "Contact not found")
	case errors.Is(err, repository.ErrCorruptStore):
		logger.Errorf("contact store unreadable: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "contact database is corrupt")
	default:
		logger.Errorf("request failed: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a JSON body into dst. It reports a 400 itself and returns
// false when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}
