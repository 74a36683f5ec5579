package domain

// Role values accepted on a chat turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is one message of a conversation as exchanged with the client.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateRequest is the provider-agnostic input for a single generation call.
type GenerateRequest struct {
	Model             string
	SystemInstruction string
	Temperature       float64
	MaxOutputTokens   int
	History           []ChatTurn
	Message           string
}
