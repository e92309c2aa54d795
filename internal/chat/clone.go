package chat

// CloneDefinition deep-copies a function definition, including nested
// parameter schema maps and slices.
func CloneDefinition(def FunctionDefinition) FunctionDefinition {
	out := def
	if def.Parameters != nil {
		out.Parameters = cloneMap(def.Parameters)
	}
	return out
}

// CloneDefinitions deep-copies a definition list. The result is never nil.
func CloneDefinitions(in []FunctionDefinition) []FunctionDefinition {
	out := make([]FunctionDefinition, len(in))
	for i, def := range in {
		out[i] = CloneDefinition(def)
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, item := range val {
			out[i] = cloneMap(item)
		}
		return out
	default:
		return val
	}
}
