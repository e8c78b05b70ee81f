// Package validation checks request payloads with go-playground/validator and
// reports failures as apperr validation errors keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"lingoquest/internal/apperr"
)

// usernameRegex allows letters, digits and @/./+/-/_
var usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

// MaxPasswordBytes is the longest input bcrypt accepts
const MaxPasswordBytes = 72

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	// max counts runes; bcrypt limits bytes
	if err := v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxPasswordBytes
	}); err != nil {
		panic(err)
	}
	return v
}

// Struct validates s against its `validate` tags
func Struct(s interface{}) error {
	return convert(validate.Struct(s), "")
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	return convert(validate.Var(strings.TrimSpace(email), "required,email,max=254"), "email")
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	return convert(validate.Var(password, "required,min=8,bcryptlen"), "password")
}

// ValidateUsername checks if a username is valid
func ValidateUsername(username string) error {
	return convert(validate.Var(username, "required,max=150,username"), "username")
}

// convert turns validator errors into an apperr validation error. field names
// the value for Var checks, which carry no field of their own.
func convert(err error, field string) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if name == "" {
			name = field
		}
		if _, seen := fields[name]; !seen {
			fields[name] = message(fe)
		}
	}
	return apperr.Validation("Invalid input.", fields)
}

// Merge combines the fields of several validation errors; nil inputs are skipped
func Merge(errs ...error) error {
	fields := map[string]string{}
	for _, err := range errs {
		if err == nil {
			continue
		}
		appErr, ok := apperr.As(err)
		if !ok || appErr.Kind != apperr.KindValidation {
			return err
		}
		for k, v := range appErr.Fields {
			if _, seen := fields[k]; !seen {
				fields[k] = v
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return apperr.Validation("Invalid input.", fields)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return apperr.MsgRequired
	case "email":
		return "Enter a valid email address."
	case "url":
		return "Enter a valid URL."
	case "bcryptlen":
		return fmt.Sprintf("Ensure this field has no more than %d bytes.", MaxPasswordBytes)
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Ensure this field has no more than %s elements.", fe.Param())
		}
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "gt", "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", fe.Param())
	default:
		return "Invalid value."
	}
}
