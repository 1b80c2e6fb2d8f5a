package ports

import "context"

// Role of a message in a context chain.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the context chain sent to an Answerer.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Answerer produces the answer to a question given the exchanges above it,
// oldest first.
type Answerer interface {
	Answer(ctx context.Context, question string, history []Message) (string, error)
}
