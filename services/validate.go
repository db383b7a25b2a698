package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lborres/volunteer/core"
)

var fieldMessages = map[string]string{
	"required": "The %s field is required.",
	"email":    "The %s field must be a valid email address.",
	"min":      "The %s field must be at least %s characters.",
	"max":      "The %s field must not be greater than %s characters.",
	"eqfield":  "The %s field confirmation does not match.",
	"oneof":    "The selected %s is invalid.",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput checks input before any request is sent and reports
// failures in the backend's field-keyed shape.
func validateInput(v *validator.Validate, input any) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate input: %w", err)
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		// eqfield reports on the confirmation, the backend reports on the original
		if fe.Tag() == "eqfield" {
			field = strings.TrimSuffix(field, "_confirmation")
		}
		fields[field] = append(fields[field], fieldMessage(fe, field))
	}
	return core.NewValidationError(fields)
}

func fieldMessage(fe validator.FieldError, field string) string {
	label := strings.ReplaceAll(field, "_", " ")
	msg, ok := fieldMessages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("The %s field is invalid.", label)
	}
	if strings.Count(msg, "%s") == 2 {
		return fmt.Sprintf(msg, label, fe.Param())
	}
	return fmt.Sprintf(msg, label)
}
