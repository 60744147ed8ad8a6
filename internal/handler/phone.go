package handler

import (
	"errors"
	"net/http"

	"github.com/rehber/rehber/internal/phone"
)

// PhoneHandler exposes the formatter and validator to the UI so the form
// can format as the user types.
type PhoneHandler struct{}

func NewPhoneHandler() *PhoneHandler { return &PhoneHandler{} }

type formatRequest struct {
	Value string `json:"value"`
}

type formatResponse struct {
	phone.Result
	Region string `json:"region,omitempty"`
}

// Format handles POST /api/phone/format
func (h *PhoneHandler) Format(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res := phone.Analyze(req.Value)
	writeJSON(w, http.StatusOK, formatResponse{Result: res, Region: phone.RegionOf(res.Cleaned)})
}

type validateRequest struct {
	Values []string `json:"values"`
}

// Validate handles POST /api/phone/validate
func (h *PhoneHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := phone.Validate(req.Values)
	var verr *phone.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"valid": true})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, phoneErrorBody(verr))
	default:
		writeServiceError(w, err)
	}
}

// Countries handles GET /api/phone/countries
func (h *PhoneHandler) Countries(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, phone.Countries())
}
