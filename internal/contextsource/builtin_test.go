package contextsource

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/harunnryd/kotoba/internal/chat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentTime(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	h := currentTime(func() time.Time { return fixed })

	out, err := h(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "2024-05-01T10:00:00Z", got["time"])
	assert.Equal(t, "+00:00", got["utc_offset"])

	out, err = h(context.Background(), json.RawMessage(`{"utc_offset":"+07:00"}`))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "2024-05-01T17:00:00+07:00", got["time"])

	_, err = h(context.Background(), json.RawMessage(`{"utc_offset":"7"}`))
	assert.Error(t, err)
}

func TestRegisterBuiltins(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))

	defs := r.AvailableFunctions()
	require.Len(t, defs, 1)
	assert.Equal(t, CurrentTimeFunction, defs[0].Name)

	out, err := r.Call(context.Background(), chat.FunctionCall{Name: CurrentTimeFunction, Arguments: `{"utc_offset":"-05:30"}`})
	require.NoError(t, err)
	assert.Contains(t, out, `"utc_offset":"-05:30"`)
}
