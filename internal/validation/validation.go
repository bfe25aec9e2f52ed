// Package validation wraps go-playground/validator with the dashboard's custom rules.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/jrsteele09/planter-dashboard/internal/errors"
)

var awsAccountIDPattern = regexp.MustCompile(`^[0-9]{12}$`)

// Validator wraps the go-playground validator with custom rules
type Validator struct {
	validate *validator.Validate
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
)

// Default returns a shared Validator. validator.Validate caches struct metadata, so one instance is reused.
func Default() *Validator {
	defaultOnce.Do(func() {
		defaultValidator = New()
	})
	return defaultValidator
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("awsaccountid", func(fl validator.FieldLevel) bool {
		return awsAccountIDPattern.MatchString(fl.Field().String())
	})

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// Struct validates s and returns a *Error matching apperrors.ErrValidation on failure.
func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if apperrors.As(err, &verrs) {
			return newError(verrs)
		}
		return apperrors.Wrapf(apperrors.ErrValidation, "%v", err)
	}
	return nil
}

// Var validates a single value against tag, naming it field in the resulting error.
func (v *Validator) Var(field string, value any, tag string) error {
	if err := v.validate.Var(value, tag); err != nil {
		var verrs validator.ValidationErrors
		if apperrors.As(err, &verrs) {
			e := newError(verrs)
			if msg, ok := e.Fields[""]; ok {
				delete(e.Fields, "")
				e.Fields[field] = strings.Replace(msg, "value", field, 1)
			}
			return e
		}
		return apperrors.Wrapf(apperrors.ErrValidation, "%s: %v", field, err)
	}
	return nil
}

// Error carries one user-facing message per invalid field.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, ", ")
}

func (e *Error) Is(target error) bool {
	return target == apperrors.ErrValidation
}

func newError(errs validator.ValidationErrors) *Error {
	fields := make(map[string]string, len(errs))
	for _, err := range errs {
		field := err.Field()
		name := field
		if name == "" {
			name = "value"
		}
		switch err.Tag() {
		case "required":
			fields[field] = fmt.Sprintf("%s is required", name)
		case "max":
			fields[field] = fmt.Sprintf("%s must be at most %s characters long", name, err.Param())
		case "oneof":
			fields[field] = fmt.Sprintf("%s must be one of %s", name, err.Param())
		case "awsaccountid":
			fields[field] = fmt.Sprintf("%s must be a 12-digit AWS account ID", name)
		default:
			fields[field] = fmt.Sprintf("%s is invalid", name)
		}
	}
	return &Error{Fields: fields}
}
