// Package openai adapts the official OpenAI SDK to the engine's
// ProviderClient surface: one completion call and one embedding call, with
// failures classified transient or permanent for the retry policy.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/davidbz/kodama/internal/domain"
	"github.com/davidbz/kodama/internal/observability"
)

const (
	providerName = "openai"

	embeddingDimension = 1536 // Ada v2 and Small v3

	tokensToPerK = 1000.0
)

// modelPricing maps models to USD per 1K tokens for reported cost.
//
//nolint:gochecknoglobals // static pricing table
var modelPricing = map[string]struct {
	inputPer1K  float64
	outputPer1K float64
}{
	"gpt-4o":        {0.0025, 0.01},
	"gpt-4":         {0.03, 0.06},
	"gpt-4-turbo":   {0.01, 0.03},
	"gpt-4o-mini":   {0.00015, 0.0006},
	"gpt-3.5-turbo": {0.0005, 0.0015},
}

// Config contains OpenAI client configuration.
type Config struct {
	APIKey         string `env:"OPENAI_API_KEY"`
	BaseURL        string `env:"OPENAI_BASE_URL"         envDefault:""`
	Timeout        int    `env:"OPENAI_TIMEOUT"          envDefault:"60"`
	EmbeddingModel string `env:"OPENAI_EMBEDDING_MODEL"  envDefault:"text-embedding-3-small"`
}

// Client implements domain.ProviderClient for OpenAI.
type Client struct {
	client         openai.Client
	embeddingModel string
}

// NewClient creates a new OpenAI provider client. Retries are owned by the
// agents' retry policy, so SDK-level retries are disabled.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(config.Timeout)*time.Second))
	}

	return &Client{
		client:         openai.NewClient(opts...),
		embeddingModel: config.EmbeddingModel,
	}, nil
}

// Invoke sends a completion request and returns the full response with
// spend data.
func (c *Client) Invoke(ctx context.Context, req *domain.InvokeRequest) (*domain.InvokeResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI API")

	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
		// Agents always choose a temperature; 0.0 means deterministic,
		// not unset.
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		classified := classify(err)
		logger.Error("OpenAI API call failed", observability.Error(classified))
		return nil, classified
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	logger.Debug("OpenAI API call succeeded",
		observability.Int("prompt_tokens", int(resp.Usage.PromptTokens)),
		observability.Int("completion_tokens", int(resp.Usage.CompletionTokens)),
	)

	return &domain.InvokeResponse{
		Text:             content,
		Cost:             cost(string(resp.Model), int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens)),
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

// Embed creates a vector embedding from text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, errors.New("text cannot be empty")
	}

	//nolint:exhaustruct // OpenAI SDK struct has many optional fields
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, classify(err)
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embeddings returned")
	}

	return resp.Data[0].Embedding, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return providerName
}

// Generate implements domain.EmbeddingGenerator.
func (c *Client) Generate(ctx context.Context, text string) ([]float64, error) {
	return c.Embed(ctx, text)
}

// Dimension returns the embedding vector dimension.
func (c *Client) Dimension() int {
	return embeddingDimension
}

// classify wraps timeouts, throttling, and server-side failures as
// transient so the retry policy picks them up; everything else is
// permanent.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Transient(err)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests,
			apiErr.StatusCode == http.StatusRequestTimeout,
			apiErr.StatusCode >= http.StatusInternalServerError:
			return domain.Transient(err)
		}
		return fmt.Errorf("OpenAI API call failed: %w", err)
	}

	// Network-level failures without an API status are worth retrying.
	return domain.Transient(err)
}

func cost(model string, promptTokens, completionTokens int) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		return 0
	}

	return float64(promptTokens)/tokensToPerK*pricing.inputPer1K +
		float64(completionTokens)/tokensToPerK*pricing.outputPer1K
}
