package receipt

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

var (
	retailerPattern    = regexp.MustCompile(`^[\p{L}\p{N}_\s\-&]+$`)
	descriptionPattern = regexp.MustCompile(`^[\p{L}\p{N}_\s\-]+$`)
	moneyPattern       = regexp.MustCompile(`^\d+\.\d{2}$`)
	datePattern        = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern        = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// SchemaError lists the shape violations found in a submission.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// RequestValidator checks submissions against the receipt schema before
// they reach the store.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator builds a validator with the receipt pattern tags registered.
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	patterns := map[string]*regexp.Regexp{
		"receipt_retailer":    retailerPattern,
		"receipt_description": descriptionPattern,
		"receipt_money":       moneyPattern,
		"receipt_date":        datePattern,
		"receipt_time":        timePattern,
	}
	for tag, re := range patterns {
		re := re
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		}); err != nil {
			panic(fmt.Errorf("register %s validation: %w", tag, err))
		}
	}
	return &RequestValidator{validate: v}
}

// Validate returns a *SchemaError describing every violated constraint.
func (rv *RequestValidator) Validate(in Input) error {
	err := rv.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describe(fe))
	}
	return &SchemaError{Problems: problems}
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
	default:
		return fmt.Sprintf("%s: %q does not match the expected format", field, fmt.Sprint(fe.Value()))
	}
}
