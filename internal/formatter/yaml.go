package formatter

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/harunnryd/kotoba/internal/chat"
)

type YAMLFormatter struct{}

func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) FormatFunctions(defs []chat.FunctionDefinition) (string, error) {
	return marshalYAML(nonNil(defs))
}

func (f *YAMLFormatter) FormatMessages(msgs []chat.Message) (string, error) {
	return marshalYAML(nonNil(msgs))
}

func marshalYAML(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
