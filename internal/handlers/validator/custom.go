package validator

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// MaxJobIDLength matches the width of jobs.id.
const MaxJobIDLength = 255

func jobIDValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	if len(val) > MaxJobIDLength {
		return false
	}
	return !strings.ContainsFunc(val, func(r rune) bool {
		return unicode.IsSpace(r) || !unicode.IsPrint(r)
	})
}
