// internal/webutil/validator.go
package webutil

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct は validate タグに基づきDTOを検証し、
// 失敗時は AppError (VALIDATION_ERROR) を返します
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return NewValidationErrorResponse(verrs)
		}
		return err
	}
	return nil
}
