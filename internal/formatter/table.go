package formatter

import (
	"sort"
	"strconv"
	"strings"

	"github.com/harunnryd/kotoba/internal/chat"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

type TableFormatter struct {
	headerStyle  lipgloss.Style
	oddRowStyle  lipgloss.Style
	evenRowStyle lipgloss.Style
	borderStyle  lipgloss.Style
}

func NewTableFormatter() *TableFormatter {
	purple := lipgloss.Color("99")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	return &TableFormatter{
		headerStyle: lipgloss.NewStyle().
			Foreground(purple).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		oddRowStyle: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRowStyle: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Foreground(purple),
	}
}

func (f *TableFormatter) newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.headerStyle
			case row%2 == 0:
				return f.evenRowStyle
			default:
				return f.oddRowStyle
			}
		}).
		Headers(headers...)
}

func (f *TableFormatter) FormatFunctions(defs []chat.FunctionDefinition) (string, error) {
	if len(defs) == 0 {
		return "No functions available", nil
	}

	t := f.newTable("Name", "Description", "Parameters")
	for _, def := range defs {
		t.Row(
			def.Name,
			truncateString(def.Description, 50),
			truncateString(strings.Join(parameterNames(def.Parameters), ", "), 30),
		)
	}
	return t.String(), nil
}

func (f *TableFormatter) FormatMessages(msgs []chat.Message) (string, error) {
	if len(msgs) == 0 {
		return "No messages", nil
	}

	t := f.newTable("#", "Role", "Content")
	for i, m := range msgs {
		t.Row(strconv.Itoa(i+1), string(m.Role), truncateString(messageSummary(m), 60))
	}
	return t.String(), nil
}

func messageSummary(m chat.Message) string {
	content := strings.Join(strings.Fields(m.Content), " ")
	if m.FunctionCall != nil {
		call := "call " + m.FunctionCall.Name + "(" + m.FunctionCall.Arguments + ")"
		if content == "" {
			return call
		}
		return content + " [" + call + "]"
	}
	if m.Role == chat.RoleFunction && m.Name != "" {
		return m.Name + ": " + content
	}
	return content
}

// parameterNames lists the top-level properties of a JSON schema, required ones marked with "*".
func parameterNames(schema map[string]any) []string {
	props, _ := schema["properties"].(map[string]any)
	if len(props) == 0 {
		return nil
	}
	required := map[string]bool{}
	switch req := schema["required"].(type) {
	case []string:
		for _, r := range req {
			required[r] = true
		}
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		if required[name] {
			name += "*"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
