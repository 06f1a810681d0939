package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

func message(fe validator.FieldError) string {
	f := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", f)
	case "oneof":
		return oneOfMessage(f, fe.Param())
	case "min":
		if _, ok := fe.Value().(string); ok {
			if fe.Param() == "1" {
				return fmt.Sprintf("%q is not allowed to be empty", f)
			}
			return fmt.Sprintf("%q length must be at least %s characters long", f, fe.Param())
		}
		return fmt.Sprintf("%q must be greater than or equal to %s", f, fe.Param())
	case "isodate":
		return fmt.Sprintf(`"%s" with value "%v" fails to match the required pattern: /%s/`, f, fe.Value(), isoDatePattern)
	default:
		return fmt.Sprintf("%q is invalid", f)
	}
}

func oneOfMessage(field, param string) string {
	return fmt.Sprintf("%q must be one of [%s]", field, strings.Join(strings.Fields(param), ", "))
}
