package httpgin

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// phoneChars accepts what guests type: digits with an optional leading plus,
// spaces, dashes, dots and parentheses.
var phoneChars = regexp.MustCompile(`^\+?[0-9 ().-]+$`)

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("phone", validatePhone)
	})
}

func validatePhone(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if !phoneChars.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 9 && digits <= 15
}
