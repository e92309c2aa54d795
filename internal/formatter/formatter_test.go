package formatter

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/harunnryd/kotoba/internal/chat"
	"github.com/harunnryd/kotoba/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleFunctions() []chat.FunctionDefinition {
	return []chat.FunctionDefinition{
		{
			Name:        "lookup_invoice",
			Description: "Find an invoice by number",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"number": map[string]any{"type": "string"},
					"year":   map[string]any{"type": "integer"},
				},
				"required": []any{"number"},
			},
		},
		{Name: "current_time"},
	}
}

func sampleMessages() []chat.Message {
	return []chat.Message{
		{ID: "1", Role: chat.RoleUser, Content: "what time is it?"},
		{ID: "2", Role: chat.RoleAssistant, FunctionCall: &chat.FunctionCall{Name: "current_time", Arguments: "{}"}},
		{ID: "3", Role: chat.RoleFunction, Name: "current_time", Content: "12:00"},
		{ID: "4", Role: chat.RoleAssistant, Content: "It is noon."},
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		format  OutputFormat
		wantErr bool
	}{
		{"table format", OutputFormatTable, false},
		{"json format", OutputFormatJSON, false},
		{"yaml format", OutputFormatYAML, false},
		{"invalid format", OutputFormat("xml"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.format)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, f)
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputFormatTable, false},
		{"JSON", OutputFormatJSON, false},
		{" yaml ", OutputFormatYAML, false},
		{"csv", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTableFormatter_Functions(t *testing.T) {
	out, err := NewTableFormatter().FormatFunctions(sampleFunctions())
	require.NoError(t, err)

	assert.Contains(t, out, "lookup_invoice")
	assert.Contains(t, out, "number*, year")
	assert.Contains(t, out, "current_time")
}

func TestTableFormatter_Empty(t *testing.T) {
	f := NewTableFormatter()

	out, err := f.FormatFunctions(nil)
	require.NoError(t, err)
	assert.Equal(t, "No functions available", out)

	out, err = f.FormatMessages(nil)
	require.NoError(t, err)
	assert.Equal(t, "No messages", out)
}

func TestTableFormatter_Messages(t *testing.T) {
	out, err := NewTableFormatter().FormatMessages(sampleMessages())
	require.NoError(t, err)

	assert.Contains(t, out, "call current_time({})")
	assert.Contains(t, out, "current_time: 12:00")
	assert.Contains(t, out, "It is noon.")
}

func TestJSONFormatter(t *testing.T) {
	f := NewJSONFormatter()

	out, err := f.FormatFunctions(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	out, err = f.FormatMessages(sampleMessages())
	require.NoError(t, err)

	var decoded []chat.Message
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 4)
	assert.Equal(t, "current_time", decoded[1].FunctionCall.Name)
	assert.NotContains(t, out, "created_at")
}

func TestYAMLFormatter(t *testing.T) {
	out, err := NewYAMLFormatter().FormatFunctions(sampleFunctions())
	require.NoError(t, err)
	assert.False(t, strings.HasSuffix(out, "\n"))

	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "lookup_invoice", decoded[0]["name"])
	assert.NotContains(t, decoded[1], "parameters")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
}
