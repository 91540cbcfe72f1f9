package relay

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
)

var validate *validator.Validate
var uniTrans *ut.UniversalTranslator

func init() {
	validate = validator.New()
	en := en.New()
	uniTrans = ut.New(en, en)
	enTrans, _ := uniTrans.GetTranslator("en")

	// report fields by their config key
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("mapstructure"); name != "" {
			return name
		}
		return strings.ToLower(field.Name)
	})

	register := func(tag, text string, withParam bool) {
		validate.RegisterTranslation(tag, enTrans, func(ut ut.Translator) error {
			return ut.Add(tag, text, true)
		}, func(ut ut.Translator, fe validator.FieldError) string {
			// drop the root struct name: "Config.ws.rate_burst" -> "ws.rate_burst"
			_, key, _ := strings.Cut(fe.Namespace(), ".")
			params := []string{key}
			if withParam {
				params = append(params, fe.Param())
			}
			t, _ := ut.T(tag, params...)
			return t
		})
	}

	register("required", "{0} is a required field", false)
	register("port", "{0} must be a valid port number", false)
	register("min", "{0} must be at least {1}", true)
	register("oneof", "{0} must be one of [{1}]", true)

	validate.RegisterValidation("port", func(fl validator.FieldLevel) bool {
		port, ok := fl.Field().Interface().(int)
		if !ok {
			return false
		}
		return port > 0 && port <= 65535
	})
}
