// Package proto defines the provider-agnostic conversation types shared by
// the agent, the session loop, and the transcript store.
package proto

import "strings"

// Role is the author of a message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single conversation entry.
type Message struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a tool invocation requested by the model, or, on a tool-role
// message, the call a result belongs to.
type ToolCall struct {
	ID       string   `json:"id"`
	Function Function `json:"function"`
	IsError  bool     `json:"is_error,omitempty"`
}

// Function is the named payload of a tool call.
type Function struct {
	Name      string `json:"name"`
	Arguments []byte `json:"arguments"`
}

// Conversation is a full message history.
type Conversation []Message

// String renders the conversation as a readable transcript. Tool-role
// messages and empty assistant turns are skipped.
func (c Conversation) String() string {
	var sb strings.Builder
	for _, msg := range c {
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case RoleUser:
			sb.WriteString("You: ")
			sb.WriteString(msg.Content)
			sb.WriteString("\n\n")
		case RoleAssistant:
			sb.WriteString("Agent: ")
			sb.WriteString(msg.Content)
			sb.WriteString("\n\n")
		case RoleSystem, RoleTool:
		}
	}
	return sb.String()
}

// LastAssistantText returns the text of the last assistant message, or "".
func LastAssistantText(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleAssistant {
			return messages[i].Content
		}
	}
	return ""
}
