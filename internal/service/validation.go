package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rehber/rehber/internal/models"
	"github.com/rehber/rehber/internal/phone"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

var tagCodes = map[string]string{
	"email":    "invalid_email",
	"max":      "too_long",
	"datetime": "invalid_date",
	"url":      "invalid_url",
	"required": "required",
}

func codeFor(tag string) string {
	if code, ok := tagCodes[tag]; ok {
		return code
	}
	return "invalid"
}

// validateContact runs the struct rules and reports failures by JSON path,
// e.g. "emails[work]" -> "invalid_email".
func validateContact(c *models.Contact) error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"_error": "validation_failed"}
	}
	out := make(FieldErrors, len(verrs))
	for _, e := range verrs {
		field := strings.TrimPrefix(e.Namespace(), "Contact.")
		out[field] = codeFor(e.Tag())
	}
	return out
}

// phoneInputs lists the phone fields of c in display order.
func phoneInputs(c *models.Contact) []phone.Input {
	inputs := make([]phone.Input, 0, len(c.Phones)+1)
	for _, k := range models.OrderedKeys(c.Phones) {
		inputs = append(inputs, phone.Input{Field: "phones." + k, Value: c.Phones[k]})
	}
	if c.Phone != "" {
		inputs = append(inputs, phone.Input{Field: "phone", Value: c.Phone})
	}
	return inputs
}
