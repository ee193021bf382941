package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct fields against their `validate` tags. Tag
// failures come back as a *ValidationError so handlers can render a
// per-field breakdown; anything else is passed through unchanged.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var tagErrs validator.ValidationErrors
	if !errors.As(err, &tagErrs) {
		return err
	}
	return &ValidationError{Errors: tagErrs}
}

// DecodeAndValidate decodes the JSON request body into dst and then
// validates it. Handlers distinguish a malformed body (decode error)
// from a well-formed but invalid one (*ValidationError).
func DecodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return Validate(dst)
}

// ValidationError carries the per-field tag failures in a form the HTTP
// layer can serialize.
type ValidationError struct {
	Errors validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("field '%s' %s", fe.Field(), fieldMessage(fe)))
	}
	return strings.Join(msgs, "; ")
}

// Fields maps each failing field name to a human-readable message.
func (e *ValidationError) Fields() map[string]string {
	fields := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}
