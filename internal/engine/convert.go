package engine

import (
	"strings"

	"github.com/harunnryd/kotoba/internal/chat"
	"github.com/harunnryd/kotoba/internal/model/contract"
)

// toContractMessages maps the transcript onto provider messages. A function
// call is only sent together with its result; unpaired calls and results are
// left out.
func toContractMessages(messages []chat.Message) []contract.Message {
	called := make(map[string]bool)
	answered := make(map[string]bool)
	for _, m := range messages {
		switch {
		case m.Role == chat.RoleAssistant && m.FunctionCall != nil:
			called[m.FunctionCall.ID] = true
		case m.Role == chat.RoleFunction:
			answered[m.FunctionCallID] = true
		}
	}

	out := make([]contract.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case chat.RoleSystem, chat.RoleUser:
			out = append(out, contract.Message{Role: string(m.Role), Content: m.Content})
		case chat.RoleAssistant:
			msg := contract.Message{Role: contract.RoleAssistant, Content: m.Content}
			if m.FunctionCall != nil && answered[m.FunctionCall.ID] {
				msg.ToolCalls = []*contract.ToolCall{{
					ID:    m.FunctionCall.ID,
					Name:  m.FunctionCall.Name,
					Input: m.FunctionCall.Arguments,
				}}
			}
			if strings.TrimSpace(msg.Content) == "" && len(msg.ToolCalls) == 0 {
				continue
			}
			out = append(out, msg)
		case chat.RoleFunction:
			if !called[m.FunctionCallID] {
				continue
			}
			out = append(out, contract.Message{
				Role:       contract.RoleTool,
				Content:    m.Content,
				Name:       m.Name,
				ToolCallID: m.FunctionCallID,
			})
		}
	}
	return out
}

func toToolDefs(defs []chat.FunctionDefinition) []contract.ToolDef {
	if len(defs) == 0 {
		return nil
	}
	out := make([]contract.ToolDef, 0, len(defs))
	for _, d := range defs {
		out = append(out, contract.ToolDef{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		})
	}
	return out
}
