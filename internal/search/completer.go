// Package search answers web questions through an OpenAI-compatible
// completion service, enriching the prompt with the user's profile, their
// relevant memories and earlier searches.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultBaseURL is Perplexity's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.perplexity.ai/"

// ErrRateLimited is returned when the completion service answers 429.
var ErrRateLimited = errors.New("completion service rate limited")

// Completer turns a prompt into an answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// PerplexityCompleter calls a chat completion endpoint with a single user message.
type PerplexityCompleter struct {
	client openai.Client
	model  string
}

// NewPerplexityCompleter builds a completer. An empty baseURL means
// DefaultBaseURL and an empty model means "sonar".
func NewPerplexityCompleter(apiKey, baseURL, model string, timeout time.Duration) *PerplexityCompleter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if model == "" {
		model = "sonar"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	return &PerplexityCompleter{client: openai.NewClient(opts...), model: model}
}

func (c *PerplexityCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
