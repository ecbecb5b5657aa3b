package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON names so messages match what clients sent
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	// Format validation errors
	var errs []string
	for _, err := range verrs {
		field := err.Field()
		param := err.Param()

		switch err.Tag() {
		case "required":
			errs = append(errs, field+" is required")
		case "min":
			errs = append(errs, field+" must be at least "+param)
		case "max":
			errs = append(errs, field+" must be at most "+param)
		case "email":
			errs = append(errs, field+" must be a valid email")
		case "datetime":
			errs = append(errs, field+" must match the format "+param)
		default:
			errs = append(errs, field+" is invalid")
		}
	}

	return fmt.Errorf("%s", strings.Join(errs, ", "))
}

// MissingFields lists the JSON names of required fields left empty in s.
func MissingFields(s interface{}) []string {
	err := validate.Struct(s)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	var missing []string
	for _, e := range verrs {
		if e.Tag() == "required" {
			missing = append(missing, e.Field())
		}
	}
	return missing
}

// RequiredFields lists the JSON names of every field tagged required on the
// struct type of s.
func RequiredFields(s interface{}) []string {
	t := reflect.TypeOf(s)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	var out []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		for _, rule := range strings.Split(f.Tag.Get("validate"), ",") {
			if rule == "required" {
				out = append(out, strings.SplitN(f.Tag.Get("json"), ",", 2)[0])
				break
			}
		}
	}
	return out
}
