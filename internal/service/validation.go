package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/model"
)

// ValidationError lists every invalid field of a request.
type ValidationError struct {
	Fields []model.FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Msg
	}
	return "invalid request: " + strings.Join(msgs, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var requiredMessages = map[string]string{
	"name":              "Name is required",
	"email":             "Valid email is required",
	"phone":             "Phone number is required",
	"class_id":          "Valid class ID is required",
	"emergency_contact": "Emergency contact is invalid",
}

var fieldLabels = map[string]string{
	"name":              "Name",
	"email":             "Email",
	"phone":             "Phone number",
	"class_id":          "Class ID",
	"emergency_contact": "Emergency contact",
}

// validateBookRequest expects req to be normalized already.
func validateBookRequest(req model.BookRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate booking request: %w", err)
	}

	out := &ValidationError{}
	seen := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if seen[field] {
			continue
		}
		seen[field] = true
		out.Fields = append(out.Fields, model.FieldError{Field: field, Msg: fieldMessage(field, fe.Tag(), fe.Param())})
	}
	return out
}

func fieldMessage(field, tag, param string) string {
	if tag == "max" {
		return fmt.Sprintf("%s must be at most %s characters", fieldLabels[field], param)
	}
	if msg, ok := requiredMessages[field]; ok {
		return msg
	}
	return field + " is invalid"
}
