package crew

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "yaml"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	return v
}

// RunInputs are the caller-supplied values of one run.
type RunInputs struct {
	CompanyName string `json:"company_name" validate:"required,max=200"`
	CurrentYear string `json:"current_year" validate:"required,max=16"`
}

// NewRunInputs trims the caller values, defaults the year to now's calendar
// year and validates the result.
func NewRunInputs(companyName string, currentYear string, now time.Time) (RunInputs, error) {
	in := RunInputs{
		CompanyName: strings.TrimSpace(companyName),
		CurrentYear: strings.TrimSpace(currentYear),
	}.withDefaults(now)
	if err := in.Validate(); err != nil {
		return RunInputs{}, err
	}
	return in, nil
}

func (in RunInputs) withDefaults(now time.Time) RunInputs {
	if strings.TrimSpace(in.CurrentYear) == "" {
		in.CurrentYear = strconv.Itoa(now.Year())
	}
	return in
}

// Validate returns a *ValidationError for the first invalid field.
func (in RunInputs) Validate() error {
	if strings.TrimSpace(in.CompanyName) == "" {
		return &ValidationError{Field: "company_name", Reason: "is required"}
	}
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &ValidationError{Field: verrs[0].Field(), Reason: describe(verrs[0])}
	}
	return &ValidationError{Field: "input", Reason: err.Error()}
}

// Labels are the template values substituted into prompts.
func (in RunInputs) Labels() map[string]string {
	return map[string]string{
		"company_name": in.CompanyName,
		"current_year": in.CurrentYear,
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
