// Package validator checks request structs against `validate` tags and
// reports failures as ValidationErrors keyed by JSON field name.
//
// Besides the go-playground rule set it knows tenant_code, which accepts
// anything tenant.NormalizeCode accepts.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/xamu/xamu/pkg/tenant"
)

var std = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form", "query", "path"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	_ = v.RegisterValidation("tenant_code", func(fl validator.FieldLevel) bool {
		code, err := tenant.NormalizeCode(fl.Field().String())
		return err == nil && code == fl.Field().String()
	})
	return v
}

// Struct validates s. It returns nil or ValidationErrors.
func Struct(s any) error {
	err := std.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Join(ErrValidationFailed, err)
	}
	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:          fe.Field(),
			Message:        message(fe),
			TranslationKey: "validation." + fe.Tag(),
		})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	case "tenant_code":
		return "must be lowercase letters, digits and dashes"
	case "fqdn", "hostname":
		return "must be a valid domain name"
	default:
		return "is invalid"
	}
}
