package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rehber/rehber/internal/models"
	"github.com/rehber/rehber/internal/service"
)

// ContactHandler serves /api/contacts.
type ContactHandler struct {
	svc     service.ContactService
	maxBody int64
}

func NewContactHandler(svc service.ContactService, maxBody int64) *ContactHandler {
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	return &ContactHandler{svc: svc, maxBody: maxBody}
}

func contactID(r *http.Request) models.ContactID {
	return models.ContactID(chi.URLParam(r, "id"))
}

func (h *ContactHandler) limit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
}

// List handles GET /api/contacts?q=
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// View handles GET /api/contacts/view?q=&sort=&tab=
func (h *ContactHandler) View(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v, err := h.svc.View(r.Context(), service.ViewState{
		Query: q.Get("q"),
		Sort:  models.SortMode(q.Get("sort")),
		Tab:   service.Tab(q.Get("tab")),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Get handles GET /api/contacts/{id}
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), contactID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Card handles GET /api/contacts/{id}/card
func (h *ContactHandler) Card(w http.ResponseWriter, r *http.Request) {
	card, err := h.svc.Card(r.Context(), contactID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// Create handles POST /api/contacts
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.limit(w, r)
	var c models.Contact
	if !decodeJSON(w, r, &c) {
		return
	}
	created, err := h.svc.Create(r.Context(), c)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Contact added",
		"contact": created,
	})
}

// Update handles PUT /api/contacts/{id}
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.limit(w, r)
	body, err := io.ReadAll(r.Body)
	if err != nil || !json.Valid(body) {
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	updated, err := h.svc.Update(r.Context(), contactID(r), body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "contact": updated})
}

// Delete handles DELETE /api/contacts/{id}
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), contactID(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

// Import handles POST /api/contacts/import
func (h *ContactHandler) Import(w http.ResponseWriter, r *http.Request) {
	h.limit(w, r)
	var list []models.Contact
	if err := json.NewDecoder(r.Body).Decode(&list); err != nil || list == nil {
		writeJSONError(w, http.StatusBadRequest, "Expected a JSON array of contacts")
		return
	}
	n, err := h.svc.Import(r.Context(), list)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "count": n})
}

// Merge handles POST /api/contacts/{id}/merge
func (h *ContactHandler) Merge(w http.ResponseWriter, r *http.Request) {
	h.limit(w, r)
	var incoming models.Contact
	if !decodeJSON(w, r, &incoming) {
		return
	}
	merged, err := h.svc.Merge(r.Context(), contactID(r), incoming)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "contact": merged})
}

// ToggleFavorite handles POST /api/contacts/{id}/favorite
func (h *ContactHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.ToggleFavorite(r.Context(), contactID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "contact": c})
}
