package timeline

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/lichsu/core"
)

var (
	categoryTag  = "category"
	categoryText = "must be one of: domestic, world"

	dateStrTag  = "datestr"
	dateStrText = "must contain a date such as 1945, 08/1945, 02/09/1945 or 1945 - 1954"

	stageIDTag   = "stageid"
	stageIDText  = "only lowercase letters, digits and hyphens are allowed"
	stageIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]*$`)
)

// InitValidators registers the timeline validations. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(categoryTag, categoryValidation)
	core.RegisterCustomTranslation(validate, translator, categoryTag, categoryText)

	_ = validate.RegisterValidation(dateStrTag, dateStrValidation)
	core.RegisterCustomTranslation(validate, translator, dateStrTag, dateStrText)

	_ = validate.RegisterValidation(stageIDTag, stageIDValidation)
	core.RegisterCustomTranslation(validate, translator, stageIDTag, stageIDText)
}

// Custom Validators

func categoryValidation(fl validator.FieldLevel) bool {
	return Category(fl.Field().String()).Valid()
}

// dateStrValidation refuses text that would silently sort first.
func dateStrValidation(fl validator.FieldLevel) bool {
	return ResolveDateValue(fl.Field().String()) > 0
}

func stageIDValidation(fl validator.FieldLevel) bool {
	return stageIDRegex.MatchString(fl.Field().String())
}
