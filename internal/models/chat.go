package models

// ChatRole identifies the author of a chat message
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of the conversation sent as generation history
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// GenerateRequest is the body of a generation call
type GenerateRequest struct {
	Prompt  string        `json:"prompt"`
	History []ChatMessage `json:"history,omitempty"`
}
