package httpx

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// ValidationDetail renders the first field error of a validator result
// as a problem detail string.
func ValidationDetail(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return first.Field() + " failed " + first.Tag() + " validation"
	}
	return "invalid request payload"
}
