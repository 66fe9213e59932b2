package chat

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report JSON names so messages match what the client sent
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput checks struct tags and returns a BAD_REQUEST error describing
// the first violated field.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return badRequest("invalid input")
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return badRequest("%s is required", fe.Field())
	case "min":
		return badRequest("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return badRequest("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gt":
		return badRequest("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return badRequest("%s is invalid", fe.Field())
	}
}
