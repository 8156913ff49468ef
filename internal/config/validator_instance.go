package config

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	// Category names become template placeholders such as __axeResult__, so
	// they are restricted to letters.
	categoryPattern = regexp.MustCompile(`^[a-zA-Z]+$`)
	reservedNames   = map[string]struct{}{"total": {}, "log": {}}
)

// validatorInstance configures and returns the shared validator instance used across the config package.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})

		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return categoryPattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

func isCategory(name string) bool {
	return categoryPattern.MatchString(name)
}

func isReserved(name string) bool {
	_, ok := reservedNames[name]
	return ok
}
