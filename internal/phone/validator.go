package phone

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingCountryCode = errors.New("phone: missing country code")
	ErrUnknownCountryCode = errors.New("phone: unknown country code")
)

// ErrorKind classifies a rejected phone entry.
type ErrorKind int

const (
	MissingCountryCode ErrorKind = iota + 1
	UnknownCountryCode
)

func (k ErrorKind) String() string {
	switch k {
	case MissingCountryCode:
		return "missing_country_code"
	case UnknownCountryCode:
		return "unknown_country_code"
	default:
		return "unknown"
	}
}

// Input is one phone entry tied to the form field it came from.
type Input struct {
	Field string
	Value string
}

// ValidationError reports the first rejected entry.
type ValidationError struct {
	Index int
	Field string
	Value string
	Kind  ErrorKind
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %q", e.sentinel().Error(), e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.sentinel() }

func (e *ValidationError) sentinel() error {
	if e.Kind == UnknownCountryCode {
		return ErrUnknownCountryCode
	}
	return ErrMissingCountryCode
}

// Message is the text shown next to the offending field.
func (e *ValidationError) Message() string {
	switch e.Kind {
	case UnknownCountryCode:
		return fmt.Sprintf("Geçersiz veya tanınmayan ülke kodu: %s", e.Value)
	default:
		return fmt.Sprintf("Telefon numarası ülke kodu ile başlamalıdır (ör. +90): %s", e.Value)
	}
}

// Validate checks values in order and stops at the first bad one. Fields are
// named "phone[i]".
func Validate(values []string) error {
	inputs := make([]Input, len(values))
	for i, v := range values {
		inputs[i] = Input{Field: fmt.Sprintf("phone[%d]", i), Value: v}
	}
	return ValidateInputs(inputs)
}

// ValidateInputs requires every non-blank entry to carry a '+' calling code
// known to the table. Blank entries are skipped. Length against the mask is
// not checked.
func ValidateInputs(inputs []Input) error {
	for i, in := range inputs {
		v := strings.TrimSpace(in.Value)
		if v == "" {
			continue
		}
		if !strings.HasPrefix(v, "+") {
			return &ValidationError{Index: i, Field: in.Field, Value: in.Value, Kind: MissingCountryCode}
		}
		if _, ok := Resolve(v); !ok {
			return &ValidationError{Index: i, Field: in.Field, Value: in.Value, Kind: UnknownCountryCode}
		}
	}
	return nil
}
