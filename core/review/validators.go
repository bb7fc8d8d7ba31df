package review

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/confhub/backend/core"
)

var (
	decisionTag  = "decision"
	decisionText = "decision must be ACCEPTED or REJECTED"
)

// InitValidators registers the review validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(decisionTag, decisionValidation)
	core.RegisterCustomTranslation(validate, translator, decisionTag, decisionText)
}

func decisionValidation(fl validator.FieldLevel) bool {
	return Decision(fl.Field().String()).IsValid()
}
