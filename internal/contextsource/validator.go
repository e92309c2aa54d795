package contextsource

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

// ValidateArguments checks JSON arguments against a function's parameter
// schema. It covers the subset of JSON Schema models produce for function
// calling: object properties, required fields, primitive types, arrays and
// enums. Unknown fields are allowed.
func ValidateArguments(schema map[string]any, args json.RawMessage) error {
	var input map[string]any
	if err := json.Unmarshal(args, &input); err != nil {
		return fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	if len(schema) == 0 {
		return nil
	}

	return validateObject("", schema, input)
}

func validateObject(path string, schema map[string]any, input map[string]any) error {
	for _, fieldName := range requiredFields(schema) {
		if _, exists := input[fieldName]; !exists {
			return fmt.Errorf("missing required field: %s", join(path, fieldName))
		}
	}

	properties, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil
	}

	for key, value := range input {
		propSchema, ok := properties[key].(map[string]any)
		if !ok {
			continue
		}
		if err := validateValue(join(path, key), propSchema, value); err != nil {
			return err
		}
	}

	return nil
}

func requiredFields(schema map[string]any) []string {
	switch required := schema["required"].(type) {
	case []string:
		return required
	case []any:
		out := make([]string, 0, len(required))
		for _, field := range required {
			if name, ok := field.(string); ok {
				out = append(out, name)
			}
		}
		return out
	}
	return nil
}

func validateValue(field string, schema map[string]any, value any) error {
	if err := validateEnum(field, schema, value); err != nil {
		return err
	}

	expectedType, ok := schema["type"].(string)
	if !ok {
		return nil
	}

	switch expectedType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field '%s' expected string, got %T", field, value)
		}
	case "number":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("field '%s' expected number, got %T", field, value)
		}
	case "integer":
		n, ok := value.(float64)
		if !ok || n != math.Trunc(n) {
			return fmt.Errorf("field '%s' expected integer, got %v", field, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field '%s' expected boolean, got %T", field, value)
		}
	case "array":
		arr, ok := value.([]any)
		if !ok {
			return fmt.Errorf("field '%s' expected array, got %T", field, value)
		}
		if itemsSchema, ok := schema["items"].(map[string]any); ok {
			for i, item := range arr {
				if err := validateValue(fmt.Sprintf("%s[%d]", field, i), itemsSchema, item); err != nil {
					return err
				}
			}
		}
	case "object":
		obj, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("field '%s' expected object, got %T", field, value)
		}
		return validateObject(field, schema, obj)
	}

	return nil
}

func validateEnum(field string, schema map[string]any, value any) error {
	options, ok := enumOptions(schema["enum"])
	if !ok {
		return nil
	}

	for _, o := range options {
		if reflect.DeepEqual(o, value) {
			return nil
		}
	}
	return fmt.Errorf("field '%s' must be one of %v, got %v", field, options, value)
}

// enumOptions normalises enum values to their decoded JSON form, so that an
// int enum declared in Go matches the float64 a decoded argument carries.
func enumOptions(raw any) ([]any, bool) {
	if raw == nil {
		return nil, false
	}
	v := reflect.ValueOf(raw)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, false
	}

	out := make([]any, 0, v.Len())
	for i := range v.Len() {
		out = append(out, normalizeJSON(v.Index(i).Interface()))
	}
	return out, true
}

func normalizeJSON(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func join(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}
