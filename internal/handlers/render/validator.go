package render

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	svcvalidate "github.com/ybenkirane/atlaspay/internal/service/validate"
)

func configureValidator(validate *validator.Validate) {
	_ = validate.RegisterValidation("rib", validateRIB)
	validate.RegisterTagNameFunc(useJSONTagNames)
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

func validateRIB(fl validator.FieldLevel) bool {
	_, err := svcvalidate.RIB(fl.Field().String())
	return err == nil
}
