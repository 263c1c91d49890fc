package ports

import "context"

// ChatMessage is one message of a chat completion request
type ChatMessage struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// ChatRequest describes a chat completion call
type ChatRequest struct {
	MaxTokens   int
	Messages    []ChatMessage
	Model       string
	Temperature float64
}

// ChatCompleter talks to the language model. onDelta, when non-nil, receives
// the accumulated text after each streamed chunk.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest, onDelta func(text string)) (string, error)
}
