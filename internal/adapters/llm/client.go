package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"gitsmart/internal/logging"
	"gitsmart/internal/ports"
)

// ErrEmptyResponse is returned when the stream finishes without any content
var ErrEmptyResponse = errors.New("model returned an empty response")

const chatCompletionsPath = "/chat/completions"

// Client is an OpenAI compatible chat completions client that always streams
type Client struct {
	api    *openai.Client
	logger *slog.Logger
}

// Compile-time interface verification
var _ ports.ChatCompleter = (*Client)(nil)

// NewClient creates a client for apiURL, the full chat completions endpoint
// (".../v1/chat/completions") or its base (".../v1"). An empty token suits
// local servers such as Ollama.
func NewClient(apiURL, authToken string, logger *slog.Logger) *Client {
	config := openai.DefaultConfig(authToken)
	config.BaseURL = BaseURL(apiURL)
	return &Client{
		api:    openai.NewClientWithConfig(config),
		logger: logging.OrDiscard(logger),
	}
}

// BaseURL strips the chat completions path the client appends itself
func BaseURL(apiURL string) string {
	base := strings.TrimRight(apiURL, "/")
	return strings.TrimSuffix(base, chatCompletionsPath)
}

// Complete implements ChatCompleter.Complete
func (c *Client) Complete(ctx context.Context, req ports.ChatRequest, onDelta func(text string)) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	started := time.Now()
	c.logger.Info("Requesting completion", "model", req.Model, "messages", len(messages), "max_tokens", req.MaxTokens)

	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		MaxTokens:   req.MaxTokens,
		Messages:    messages,
		Model:       req.Model,
		N:           1,
		Stream:      true,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		c.logger.Error("Completion request rejected", "model", req.Model, "error", err)
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read completion stream: %w", err)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		sb.WriteString(chunk.Choices[0].Delta.Content)
		if onDelta != nil {
			onDelta(sb.String())
		}
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Info("Completion finished", "model", req.Model, "chars", len(text), "duration", time.Since(started))
	return text, nil
}
