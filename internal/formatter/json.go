package formatter

import (
	"encoding/json"

	"github.com/harunnryd/kotoba/internal/chat"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) FormatFunctions(defs []chat.FunctionDefinition) (string, error) {
	return marshalJSON(nonNil(defs))
}

func (f *JSONFormatter) FormatMessages(msgs []chat.Message) (string, error) {
	return marshalJSON(nonNil(msgs))
}

func marshalJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
