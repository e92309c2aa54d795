// Package formatter renders function catalogues and transcripts for the CLI.
package formatter

import (
	"fmt"
	"strings"

	"github.com/harunnryd/kotoba/internal/chat"
	"github.com/harunnryd/kotoba/internal/errors"
)

type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
)

type Formatter interface {
	FormatFunctions([]chat.FunctionDefinition) (string, error)
	FormatMessages([]chat.Message) (string, error)
}

func New(format OutputFormat) (Formatter, error) {
	switch format {
	case OutputFormatTable:
		return NewTableFormatter(), nil
	case OutputFormatJSON:
		return NewJSONFormatter(), nil
	case OutputFormatYAML:
		return NewYAMLFormatter(), nil
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported output format: %s (supported: table, json, yaml)", format))
	}
}

// ParseOutputFormat accepts a case-insensitive format name. Empty means table.
func ParseOutputFormat(s string) (OutputFormat, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return OutputFormatTable, nil
	}
	format := OutputFormat(strings.ToLower(trimmed))
	switch format {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return format, nil
	default:
		return "", errors.InvalidInput(fmt.Sprintf("invalid output format: %s (supported: table, json, yaml)", s))
	}
}

// Parse is ParseOutputFormat followed by New.
func Parse(s string) (Formatter, error) {
	format, err := ParseOutputFormat(s)
	if err != nil {
		return nil, err
	}
	return New(format)
}
