package contextsource

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harunnryd/kotoba/internal/chat"
)

// CurrentTimeFunction is the name of the built-in clock function.
const CurrentTimeFunction = "current_time"

// RegisterBuiltins adds the functions every session can offer.
func RegisterBuiltins(r *Registry) error {
	return r.RegisterFunction(chat.FunctionDefinition{
		Name:        CurrentTimeFunction,
		Description: "Get the current time, optionally shifted to a UTC offset.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"utc_offset": map[string]any{
					"type":        "string",
					"description": "UTC offset like +07:00 (optional)",
				},
			},
		},
	}, currentTime(time.Now))
}

func currentTime(now func() time.Time) Handler {
	return func(ctx context.Context, args json.RawMessage) (string, error) {
		var in struct {
			UTCOffset string `json:"utc_offset"`
		}
		if err := json.Unmarshal(args, &in); err != nil {
			return "", fmt.Errorf("invalid input: %w", err)
		}

		offset := strings.TrimSpace(in.UTCOffset)
		t := now().UTC()
		if offset != "" {
			seconds, err := parseUTCOffset(offset)
			if err != nil {
				return "", err
			}
			t = t.In(time.FixedZone(offset, seconds))
		} else {
			offset = "+00:00"
		}

		out, err := json.Marshal(map[string]string{
			"time":       t.Format(time.RFC3339),
			"utc_offset": offset,
		})
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

// parseUTCOffset accepts ±HH:MM.
func parseUTCOffset(offset string) (int, error) {
	t, err := time.Parse("-07:00", offset)
	if err != nil || (offset[0] != '+' && offset[0] != '-') {
		return 0, fmt.Errorf("invalid utc_offset %q, want ±HH:MM", offset)
	}
	_, seconds := t.Zone()
	return seconds, nil
}
