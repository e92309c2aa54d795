package session

import "github.com/harunnryd/kotoba/internal/chat"

// Visible keeps only user and assistant messages, in order. The result is a
// new slice and is never nil.
func Visible(transcript []chat.Message) []chat.Message {
	out := make([]chat.Message, 0, len(transcript))
	for _, m := range transcript {
		if m.Role == chat.RoleUser || m.Role == chat.RoleAssistant {
			out = append(out, m.Clone())
		}
	}
	return out
}
