package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rehber/rehber/internal/models"
)

var (
	ErrNotFound     = errors.New("contact not found")
	ErrMissingInfo  = errors.New("İsim, telefon veya şirket bilgisi gereklidir.")
	ErrInvalidPatch = errors.New("update body must be a JSON object")
)

// ConflictType names the field that collided with an existing record.
type ConflictType string

const (
	ConflictPhone ConflictType = "phone"
	ConflictName  ConflictType = "name"
)

// ConflictError is returned by Create when a record with the same phone or
// name already exists.
type ConflictError struct {
	Type     ConflictType
	Existing models.Contact
}

func (e *ConflictError) Error() string {
	if e.Type == ConflictPhone {
		return "Bu numara zaten kayıtlı."
	}
	return "Bu isimde bir kayıt zaten var."
}

// FieldErrors maps a JSON field path to a short error code.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, fe[k])
	}
	return "invalid contact: " + strings.Join(parts, ", ")
}
