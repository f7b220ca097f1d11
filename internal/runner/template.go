package runner

import (
	"errors"
	"fmt"
	"os"
	"reflect"
)

// ExpandTemplates expands ${VAR} references in place inside the struct pointed
// to by in. String, *string and []string fields are only expanded when tagged
// `template:""`; `template:"-"` opts a field out. map[string]string values are
// always expanded. Nested structs, struct pointers and slices of structs are
// walked recursively; nil pointers and unexported fields are left alone.
func ExpandTemplates[T any](in *T, variables map[string]string) error {
	if in == nil {
		return nil
	}
	v := reflect.ValueOf(in).Elem()
	switch v.Kind() {
	case reflect.Struct, reflect.Slice:
		return expandValue(v, false, variables)
	default:
		return fmt.Errorf("ExpandTemplates expects *struct or *[]struct; got *%s", v.Type())
	}
}

func expandValue(v reflect.Value, tagged bool, variables map[string]string) error {
	switch v.Kind() {
	case reflect.String:
		if !tagged {
			return nil
		}
		expanded, err := Expand(v.String(), variables)
		if err != nil {
			return err
		}
		v.SetString(expanded)

	case reflect.Ptr:
		if v.IsNil() {
			return nil
		}
		if v.Elem().Kind() == reflect.String {
			if !tagged {
				return nil
			}
			// Replace rather than mutate so shared pointers stay untouched.
			expanded, err := Expand(v.Elem().String(), variables)
			if err != nil {
				return err
			}
			ptr := reflect.New(v.Elem().Type())
			ptr.Elem().SetString(expanded)
			v.Set(ptr)
			return nil
		}
		return expandValue(v.Elem(), tagged, variables)

	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := expandValue(v.Index(i), tagged, variables); err != nil {
				return err
			}
		}

	case reflect.Map:
		if v.IsNil() || v.Type().Key().Kind() != reflect.String || v.Type().Elem().Kind() != reflect.String {
			return nil
		}
		expanded, err := ExpandMap(v.Interface().(map[string]string), variables)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(expanded))

	case reflect.Struct:
		typ := v.Type()
		for i := 0; i < typ.NumField(); i++ {
			sf := typ.Field(i)
			if !sf.IsExported() {
				continue
			}
			tag, ok := sf.Tag.Lookup("template")
			if err := expandValue(v.Field(i), ok && tag != "-", variables); err != nil {
				return fmt.Errorf("%s: %w", sf.Name, err)
			}
		}
	}
	return nil
}

// Expand replaces ${VAR} references in value using variables. Every unknown
// variable is reported.
func Expand(value string, variables map[string]string) (string, error) {
	var errs error

	result := os.Expand(value, func(key string) string {
		if val, ok := variables[key]; ok {
			return val
		}
		errs = errors.Join(errs, fmt.Errorf("variable %q is neither built-in nor in the allowed environment list", key))
		return ""
	})

	if errs != nil {
		return "", errs
	}

	return result, nil
}

// ExpandMap expands all values in a map[string]string.
func ExpandMap(values map[string]string, variables map[string]string) (map[string]string, error) {
	if values == nil {
		return nil, nil
	}

	result := make(map[string]string, len(values))
	var errs error

	for k, v := range values {
		expanded, err := Expand(v, variables)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		result[k] = expanded
	}

	if errs != nil {
		return nil, errs
	}

	return result, nil
}
