package types

import (
	"github.com/ollama/ollama/api"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a channel's history. Immutable once appended;
// AudioURL is set only on assistant turns whose synthesis succeeded.
type Turn struct {
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	AudioURL string `json:"audio_url,omitempty"`
}

// ChannelInfo is the listing view of a channel.
type ChannelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (t Turn) ToAPIMessage() api.Message {
	return api.Message{
		Role:    string(t.Role),
		Content: t.Content,
	}
}

// TurnsToMessages renders a history slice into the wire shape the
// inference backend expects, oldest first.
func TurnsToMessages(turns []Turn) []api.Message {
	msgs := make([]api.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, t.ToAPIMessage())
	}
	return msgs
}
