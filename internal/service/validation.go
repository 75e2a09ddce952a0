package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
)

// mobilePattern matches a ten digit local mobile number: 0, then 5, 6 or 7, then eight digits.
var mobilePattern = regexp.MustCompile(`^0[5-7]\d{8}$`)

// NewValidator returns a validator that reports JSON field names and knows the portal's
// custom tags.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("course_status", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "ACTIVE", "COMPLETED", "NOT_STARTED":
			return true
		}
		return false
	})
	return v
}

func ensureValidator(v *validator.Validate) *validator.Validate {
	if v == nil {
		return NewValidator()
	}
	return v
}

// fieldErrors flattens validator output into field -> message.
func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "mobile":
		return "must be a 10 digit mobile number starting with 05, 06 or 07"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "course_status":
		return "must be one of ACTIVE, COMPLETED, NOT_STARTED"
	case "numeric":
		return "must be a number"
	}
	return "is invalid"
}

// validationError converts validator output into the typed validation error.
func validationError(err error, message string) error {
	fields := fieldErrors(err)
	if fields == nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	return appErrors.Validation(message, fields)
}
