// Package validate holds the process-wide go-playground validator and turns
// its failures into field-level application errors.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/yungbote/fitcoach-backend/internal/platform/apierr"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Instance returns the shared validator. Field names in errors are the json
// names, and the "clock" tag accepts 24-hour HH:MM strings.
func Instance() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonName)
		if err := v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
			return IsClock(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("register clock validation: %v", err))
		}
		instance = v
	})
	return instance
}

// Struct validates s and reports the first failure as a validation error
// whose field is the json path, e.g. goals[1].priority.
func Struct(s any) error {
	return firstFailure(Instance().Struct(s), "")
}

// Var validates a single value against tag and reports failures under path.
func Var(path string, value any, tag string) error {
	if strings.TrimSpace(tag) == "" {
		return nil
	}
	return firstFailure(Instance().Var(value, tag), path)
}

func firstFailure(err error, path string) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apierr.Validation(path, "%v", err)
	}
	return fieldError(verrs[0], path)
}

func fieldError(fe validator.FieldError, path string) error {
	if ns := namespace(fe); ns != "" {
		path = ns
	}
	name := path
	if name == "" {
		name = "value"
	}
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return apierr.Validation(path, "%s is required", name)
	case "min", "gte":
		if isCollection(fe.Kind()) {
			return apierr.Validation(path, "%s must contain at least %s entries", name, param)
		}
		return apierr.Validation(path, "%s must be at least %s", name, param)
	case "max", "lte":
		if isCollection(fe.Kind()) {
			return apierr.Validation(path, "%s must contain at most %s entries", name, param)
		}
		return apierr.Validation(path, "%s must be at most %s", name, param)
	case "oneof":
		return apierr.Validation(path, "%s must be one of %s", name, strings.Join(strings.Fields(param), ", "))
	case "clock":
		return apierr.Validation(path, "%s must be a 24-hour HH:MM time", name)
	case "unique":
		if i, field, val, ok := duplicate(fe.Value(), param); ok {
			elem := fmt.Sprintf("%s[%d].%s", path, i, field)
			return apierr.Validation(elem, "%s %v is used more than once", elem, val)
		}
		return apierr.Validation(path, "%s must not contain duplicates", name)
	default:
		return apierr.Validation(path, "%s failed %s validation", name, fe.Tag())
	}
}

// namespace drops the root struct name: Step2.goals[1].priority becomes
// goals[1].priority.
func namespace(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ""
}

func isCollection(k reflect.Kind) bool {
	return k == reflect.Slice || k == reflect.Array || k == reflect.Map
}

// duplicate finds the first element of a slice of structs whose field
// repeats an earlier element's, and returns its index, json field name and
// value.
func duplicate(slice any, field string) (int, string, any, bool) {
	rv := reflect.ValueOf(slice)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return 0, "", nil, false
	}
	seen := map[any]bool{}
	for i := 0; i < rv.Len(); i++ {
		elem := reflect.Indirect(rv.Index(i))
		if elem.Kind() != reflect.Struct {
			return 0, "", nil, false
		}
		sf, ok := elem.Type().FieldByName(field)
		if !ok {
			return 0, "", nil, false
		}
		val := elem.FieldByIndex(sf.Index).Interface()
		if seen[val] {
			return i, jsonName(sf), val, true
		}
		seen[val] = true
	}
	return 0, "", nil, false
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// IsClock reports whether s is a 24-hour HH:MM value.
func IsClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return h <= 23 && m <= 59
}
