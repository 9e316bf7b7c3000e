// Package validation wraps go-playground/validator so request structs report
// errors by their JSON field names.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gamecatalog/visibility-backend/internal/apperr"
	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Struct validates v and returns the first failing field as an
// *apperr.ValidationError.
func Struct(v interface{}) error {
	return convert(engine().Struct(v), "")
}

// Var validates a single value against tag, reporting failures under field.
func Var(field string, value interface{}, tag string) error {
	return convert(engine().Var(value, tag), field)
}

// Details maps every failing field to a message, for error.details payloads.
func Details(err error) map[string]string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = message(fe)
		}
		return out
	}
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		return map[string]string{verr.Field: verr.Message}
	}
	return nil
}

func convert(err error, field string) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("payload", "is invalid")
	}
	fe := verrs[0]
	name := field
	if name == "" {
		name = fe.Field()
	}
	return apperr.Validation(name, message(fe))
}

func message(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "min":
		return "must be at least " + param + " characters long"
	case "max":
		return "must be at most " + param + " characters long"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "url":
		return "must be a valid URL"
	default:
		if param != "" {
			return "failed '" + fe.Tag() + "' with parameter '" + param + "'"
		}
		return "failed '" + fe.Tag() + "'"
	}
}
