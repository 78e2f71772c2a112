// Package echo provides a deterministic in-process provider for
// development and tests. It fabricates well-formed responses per task
// shape without any external call.
package echo

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"strings"

	"github.com/davidbz/kodama/internal/domain"
	"github.com/davidbz/kodama/internal/observability"
)

const (
	providerName = "echo"

	embeddingDimension = 64
)

// Client implements domain.ProviderClient without external calls.
type Client struct{}

// NewClient creates a new echo provider client.
func NewClient() *Client {
	return &Client{}
}

// Invoke fabricates a deterministic response matching the requested task
// shape, inferred from the system prompt.
func (c *Client) Invoke(ctx context.Context, req *domain.InvokeRequest) (*domain.InvokeResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	observability.FromContext(ctx).Debug("echoing request",
		observability.Int("prompt_length", len(req.Prompt)))

	text := cannedResponse(req.SystemPrompt, req.Prompt)
	promptTokens := len(strings.Fields(req.Prompt))
	completionTokens := len(strings.Fields(text))

	return &domain.InvokeResponse{
		Text:             text,
		Cost:             0,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
	}, nil
}

// Embed derives a deterministic unit-independent vector from the text
// hash, so identical texts always embed identically.
func (c *Client) Embed(_ context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, errors.New("text cannot be empty")
	}

	hash := sha256.Sum256([]byte(text))
	vector := make([]float64, embeddingDimension)
	for i := range vector {
		// Two hash bytes per component, spread over [-1, 1).
		raw := binary.LittleEndian.Uint16(hash[(i*2)%len(hash):])
		vector[i] = float64(raw)/32768.0 - 1.0
	}

	return vector, nil
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

func cannedResponse(systemPrompt, prompt string) string {
	lowered := strings.ToLower(systemPrompt)

	switch {
	case strings.Contains(lowered, "action items"):
		return `[{"action":"Review the document","assignee":"","due_date":"TBD",` +
			`"priority":"MEDIUM","status":"open","dependencies":[],"confidence":0.9}]`
	case strings.Contains(lowered, "sentiment"):
		return `{"sentiment":"neutral","confidence":0.8,` +
			`"scores":{"positive":0.1,"negative":0.1,"neutral":0.8,"mixed":0.0}}`
	case strings.Contains(lowered, "analyze"):
		return `{"executive_summary":"Echoed analysis.","key_insights":["echoed input"],` +
			`"patterns":[],"recommendations":[],"risks":[],"opportunities":[],"confidence":0.8}`
	default:
		summary := prompt
		if len(summary) > 200 {
			summary = summary[:200]
		}
		return "Echo: " + summary
	}
}
