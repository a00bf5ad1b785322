// Package genai provides the text-completion capability used by the
// classifier and extractor, backed by the OpenAI API.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Provider failure sentinels. Callers must treat either as "capability
// absent" and fall back to rule-based logic; they are never surfaced to the
// end user.
var (
	ErrProviderUnavailable = errors.New("completion provider unavailable")
	ErrProviderTimeout     = errors.New("completion provider timed out")
)

// DefaultTimeout bounds a single completion call. After the deadline the call
// is abandoned and the caller takes its rule-based path.
const DefaultTimeout = 15 * time.Second

// ClientInterface is the minimal completion contract the rest of the system
// depends on. A nil ClientInterface means the capability is not configured.
type ClientInterface interface {
	// Complete sends a system and user prompt and returns the model's reply.
	// maxTokens <= 0 leaves the token limit unset.
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int64) (string, error)
}

// Opts holds configuration options for the client.
type Opts struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Option configures the client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key, overriding $OPENAI_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel sets the chat model to use.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTimeout bounds each completion call.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	client  openai.Client
	model   openai.ChatModel
	timeout time.Duration
}

// NewClient initializes a new completion client. The API key is taken from
// options or the OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	model := openai.ChatModel(cfg.Model)
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	slog.Debug("genai.NewClient: completion client created", "model", model, "timeout", timeout)
	return &Client{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: timeout,
	}, nil
}

// Complete sends the prompts to the configured chat model and returns the
// reply text. Failures are mapped onto the provider sentinels.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(maxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			slog.Warn("genai.Complete: completion timed out", "model", c.model, "timeout", c.timeout)
			return "", fmt.Errorf("%w: %v", ErrProviderTimeout, err)
		}
		slog.Warn("genai.Complete: completion failed", "model", c.model, "error", err)
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("genai.Complete: no choices returned", "model", c.model)
		return "", fmt.Errorf("%w: no choices returned", ErrProviderUnavailable)
	}

	reply := resp.Choices[0].Message.Content
	slog.Debug("genai.Complete: completion succeeded", "model", c.model, "replyLength", len(reply))
	return reply, nil
}
