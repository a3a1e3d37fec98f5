// Package completion wraps the openai-go chat completions API for the
// enrichment pipeline's text-generation steps (summarize, extract keywords,
// extract tags, extract propositions).
package completion

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"ragengine/internal/config"
	"ragengine/internal/observability"
)

// Client generates short completions for a single (system, user) prompt pair.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type openAIClient struct {
	sdk     sdk.Client
	model   string
	timeout time.Duration
}

func NewClient(cfg config.CompletionConfig) Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(observability.NewHTTPClient(nil)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &openAIClient{sdk: sdk.NewClient(opts...), model: cfg.Model, timeout: timeout}
}

func (c *openAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(c.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage(system),
			sdk.UserMessage(user),
		},
	}
	comp, err := c.sdk.Chat.Completions.New(cctx, params)
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	if len(comp.Choices) == 0 {
		return "", fmt.Errorf("completion: empty response")
	}
	return comp.Choices[0].Message.Content, nil
}
