package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// loose_email accepts anything shaped like local@host.tld.
	_ = v.RegisterValidation("loose_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

var validationMessages = map[string]string{
	"required":    "%s is required",
	"loose_email": "%s must be a valid email address",
	"min":         "%s must be at least %s characters long",
}

// validateStruct returns a BadRequest describing the first failed rule.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return BadRequest("invalid input")
	}
	fe := verrs[0]
	msg, ok := validationMessages[fe.Tag()]
	if !ok {
		return BadRequest(fmt.Sprintf("%s is invalid", fe.Field()))
	}
	if strings.Count(msg, "%s") == 2 {
		return BadRequest(fmt.Sprintf(msg, fe.Field(), fe.Param()))
	}
	return BadRequest(fmt.Sprintf(msg, fe.Field()))
}
