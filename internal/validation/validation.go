// Package validation builds the shared validator used for configuration,
// provisioning requests and custom resource properties.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	iotNamePattern      = regexp.MustCompile(`^[a-zA-Z0-9:_-]+$`)
	iotAttrKeyPattern   = regexp.MustCompile(`^[a-zA-Z0-9_.,@/:#-]+$`)
	iotAttrValuePattern = regexp.MustCompile(`^[a-zA-Z0-9_.,@/:#-]*$`)
)

// IsIoTName reports whether s is usable as a thing or thing group name.
func IsIoTName(s string) bool {
	return len(s) > 0 && len(s) <= 128 && iotNamePattern.MatchString(s)
}

func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "iotname", func(fl validator.FieldLevel) bool {
		return iotNamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "iotattrkey", func(fl validator.FieldLevel) bool {
		return iotAttrKeyPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "iotattrvalue", func(fl validator.FieldLevel) bool {
		return iotAttrValuePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "regexp", func(fl validator.FieldLevel) bool {
		_, err := regexp.Compile(fl.Field().String())
		return err == nil
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("registering %s validation: %v", tag, err))
	}
}

// Describe flattens validator errors into a single line per field.
func Describe(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	var b strings.Builder
	for i, fe := range validationErrors {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "field '%s' failed on '%s'", fe.Namespace(), fe.Tag())
	}
	return b.String()
}
