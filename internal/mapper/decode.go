// Package mapper converts stored entities to their outward JSON shapes and
// decodes inbound payloads, reporting every invalid field at once.
package mapper

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"taskboard/internal/apperror"
)

// DateLayout is the wire format of task deadlines.
const DateLayout = "2006-01-02"

// NonFieldErrors is the key used when the body as a whole is unusable.
const NonFieldErrors = "non_field_errors"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type normalizer interface {
	normalize()
}

type checker interface {
	check(verr *apperror.ValidationError)
}

// decode fills dst from a JSON object field by field. Type mismatches are
// recorded per field instead of aborting, then struct tags are validated
// for the remaining fields and dst's own checks run last.
func decode(body []byte, dst any) error {
	verr := apperror.NewValidation()

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		verr.Add(NonFieldErrors, "request body must be a JSON object")
		return verr
	}

	rv := reflect.ValueOf(dst).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		name := strings.SplitN(rt.Field(i).Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		raw, ok := fields[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, rv.Field(i).Addr().Interface()); err != nil {
			verr.Add(name, typeMessage(rt.Field(i).Type))
		}
	}

	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}

	if err := validate.Struct(dst); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				name := fe.Field()
				if idx := strings.IndexByte(name, '['); idx >= 0 {
					name = name[:idx]
				}
				verr.Add(name, tagMessage(fe))
			}
		} else {
			return fmt.Errorf("validate %T: %w", dst, err)
		}
	}

	if c, ok := dst.(checker); ok {
		c.check(verr)
	}
	return verr.OrNil()
}

func typeMessage(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName("Value"); ok {
			t = f.Type
		}
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int64:
		return "must be an integer"
	case reflect.String:
		return "must be a string"
	case reflect.Slice:
		return "must be a list"
	}
	return "has an invalid type"
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		return fmt.Sprintf("ensure this field has no more than %s characters", fe.Param())
	case "min":
		if fe.Param() == "1" && fe.Kind() == reflect.String {
			return "this field may not be blank"
		}
		return fmt.Sprintf("ensure this field has at least %s characters", fe.Param())
	case "gt":
		return "must be a positive id"
	case "lte":
		return "must be a valid id"
	case "email":
		return "enter a valid email address"
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

// Nullable distinguishes an absent field (Set false) from an explicit
// null (Set true, Valid false).
type Nullable[T any] struct {
	Set   bool
	Valid bool
	Value T
}

func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Valid = false
		var zero T
		n.Value = zero
		return nil
	}
	if err := json.Unmarshal(b, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// Ptr returns nil for null and a pointer to the value otherwise.
func (n Nullable[T]) Ptr() *T {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}
