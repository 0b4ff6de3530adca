package validator

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// FailedTags lists the validation tags that rejected err, or nil when err is
// not a validation error.
func FailedTags(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	tags := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		tags = append(tags, fe.Tag())
	}
	return tags
}
