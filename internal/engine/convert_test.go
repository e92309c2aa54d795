package engine

import (
	"testing"

	"github.com/harunnryd/kotoba/internal/chat"
	"github.com/harunnryd/kotoba/internal/model/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToContractMessages_PairsCallsWithResults(t *testing.T) {
	msgs := []chat.Message{
		{Role: chat.RoleSystem, Content: "sys"},
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleAssistant, FunctionCall: &chat.FunctionCall{ID: "a", Name: "lookup", Arguments: `{}`}},
		{Role: chat.RoleFunction, Name: "lookup", Content: "42", FunctionCallID: "a"},
		{Role: chat.RoleAssistant, Content: "let me check", FunctionCall: &chat.FunctionCall{ID: "b", Name: "lookup"}},
		{Role: chat.RoleAssistant, FunctionCall: &chat.FunctionCall{ID: "c", Name: "lookup"}},
		{Role: chat.RoleFunction, Name: "lookup", Content: "stray", FunctionCallID: "z"},
		{Role: chat.RoleUser, Content: "again"},
	}

	out := toContractMessages(msgs)
	require.Len(t, out, 6)

	assert.Len(t, out[2].ToolCalls, 1)
	assert.Equal(t, "a", out[2].ToolCalls[0].ID)
	assert.Equal(t, contract.RoleTool, out[3].Role)
	assert.Equal(t, "a", out[3].ToolCallID)

	assert.Equal(t, "let me check", out[4].Content)
	assert.Empty(t, out[4].ToolCalls)
	assert.Equal(t, "again", out[5].Content)
}
