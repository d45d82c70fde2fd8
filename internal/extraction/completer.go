package extraction

import (
	"context"
	"strings"
)

// Role identifies who wrote a transcript turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a chat transcript
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript is an ordered chat history. A single utterance is a one-turn transcript.
type Transcript []Turn

// Utterance wraps a single user message as a transcript
func Utterance(text string) Transcript {
	return Transcript{{Role: RoleUser, Content: text}}
}

// LastUserMessage returns the content of the most recent user turn
func (t Transcript) LastUserMessage() string {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Role == RoleUser {
			return t[i].Content
		}
	}
	return ""
}

// Completer defines the text-completion collaborator used by the primary extraction path
type Completer interface {
	// Complete sends the system instruction and transcript and returns the raw reply text
	Complete(ctx context.Context, system string, transcript Transcript) (string, error)
	// Close releases resources held by the completer
	Close() error
}

// flatten renders a transcript as plain text for completers without a chat API
func flatten(system string, transcript Transcript) string {
	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\n\nConversation so far:\n")
	for _, turn := range transcript {
		switch turn.Role {
		case RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			b.WriteString("User: ")
		}
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	b.WriteString("Assistant:")
	return b.String()
}
