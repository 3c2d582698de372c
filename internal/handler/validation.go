package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts validator/v10 to echo.Validator.  Field names in errors
// are the JSON names of the request DTOs.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

// validationMessage renders the first field error as "<field> is required"
// or "<field> is invalid".
func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid body"
	}
	fe := ve[0]
	if fe.Tag() == "required" || (fe.Tag() == "min" && isEmpty(fe.Value())) {
		return fe.Field() + " is required"
	}
	return fe.Field() + " is invalid"
}

func isEmpty(v interface{}) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.String, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

// bindJSON decodes the body into req, reporting a 400 on failure.  ok is
// false when a response has already been written.
func bindJSON(c echo.Context, req interface{}) (ok bool, err error) {
	if err := c.Bind(req); err != nil {
		return false, badRequest(c, "invalid body")
	}
	return true, nil
}

// validate runs the echo validator on req, reporting a 400 on failure.
func validate(c echo.Context, req interface{}) (ok bool, err error) {
	if err := c.Validate(req); err != nil {
		return false, badRequest(c, validationMessage(err))
	}
	return true, nil
}
