// internal/message/validate.go
//
// Write-time validation for submissions.
//
// Context
// -------
// Validate is a pure function.  It runs every rule over every field and
// returns all failures at once, in field order, so a contact form can show
// each problem in a single round trip.  Nothing is written when the result
// is non-empty.
//
// Rules
// -----
//   • name     non-blank, 2 to 100 characters (runes, not bytes)
//   • email    syntactically valid address, at most 255 characters
//   • subject  non-blank, at most 255 characters
//   • message  non-blank
//   • source   non-blank, at most 255 characters
//
// "Non-blank" means at least one non-whitespace character.  The 255 limits
// are the VARCHAR widths of the messages table.

package message

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// FieldError is one failed rule, keyed by the JSON field name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var v = newValidator()

func newValidator() *validator.Validate {
	vv := validator.New(validator.WithRequiredStructEnabled())
	if err := vv.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic("message: register notblank: " + err.Error())
	}
	vv.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return vv
}

// Validate reports every rule f breaks.  A nil result means f is valid.
func Validate(f Fields) []FieldError {
	err := v.Struct(f)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return []FieldError{{Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(ves))
	for _, fe := range ves {
		out = append(out, FieldError{Field: fe.Field(), Message: describe(fe)})
	}
	return out
}

// describe turns a validator failure into the sentence shown to users.
func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "notblank":
		return fmt.Sprintf("%s cannot be empty", fe.Field())
	case "min", "max":
		if fe.Field() == "name" {
			return fmt.Sprintf("%s must be between 2 and 100 characters", fe.Field())
		}
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
