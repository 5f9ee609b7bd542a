package httpx

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate runs struct tag validation on the decoded request body. Failures
// come back wrapped in ErrValidation so RespondError maps them to 400.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return errors.Join(ErrValidation, err)
	}
	return nil
}
