package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/davidbz/kodama/internal/domain"
	"github.com/davidbz/kodama/internal/observability"
	"github.com/davidbz/kodama/internal/router"
)

const sentimentSystemPrompt = "You classify the sentiment of project communications. " +
	`Respond with a single JSON object only: {"sentiment","confidence","scores"}. ` +
	"sentiment is positive, negative, neutral or mixed; confidence is between 0 and 1; " +
	"scores maps each label to its probability."

const sentimentFallbackConfidence = 0.3

// SentimentAgent classifies the sentiment of a text.
type SentimentAgent struct {
	Base
}

// NewSentimentAgent creates the sentiment agent.
func NewSentimentAgent(
	provider domain.ProviderClient,
	modelRouter *router.ModelRouter,
	metrics domain.MetricsSink,
	cfg Config,
) *SentimentAgent {
	return &SentimentAgent{
		Base: newBase("sentiment", domain.TaskSentiment, provider, modelRouter, metrics, cfg),
	}
}

// Validate requires document text.
func (a *SentimentAgent) Validate(agentCtx *domain.AgentContext) error {
	if agentCtx == nil || strings.TrimSpace(agentCtx.DocumentText) == "" {
		return domain.NewValidationError("document_text", "required")
	}
	return nil
}

// Execute classifies sentiment. Unparseable output degrades to a label
// scanned from the raw text, or neutral with low confidence.
func (a *SentimentAgent) Execute(ctx context.Context, agentCtx *domain.AgentContext) (*domain.AgentResult, error) {
	if err := a.Validate(agentCtx); err != nil {
		return nil, err
	}

	ctx = observability.WithAgent(ctx, a.name)
	ctx = observability.WithTask(ctx, string(a.task))

	text := truncate(agentCtx.DocumentText, contextWindowChars)
	prompt := fmt.Sprintf("Classify the sentiment of this text:\n\n%s", text)

	raw, meta, err := a.invoke(ctx, text, agentCtx.DocumentType, prompt, sentimentSystemPrompt, 300, 0.0)
	if err != nil {
		return nil, err
	}

	result := ParseSentiment(ctx, raw)

	return &domain.AgentResult{
		Agent:      a.name,
		Sentiment:  result,
		Confidence: result.Confidence,
		Meta:       meta,
	}, nil
}

// ParseSentiment parses the classification payload. On parse failure it
// scans the raw text for a known label and otherwise falls back to
// neutral with low confidence.
func ParseSentiment(ctx context.Context, response string) *domain.SentimentResult {
	payload := extractJSON(response, '{', '}')
	if payload != "" {
		var result domain.SentimentResult
		if err := json.Unmarshal([]byte(payload), &result); err == nil && validLabel(result.Sentiment) {
			if result.Confidence < 0 || result.Confidence > 1 {
				result.Confidence = sentimentFallbackConfidence
			}
			return &result
		}
	}

	observability.FromContext(ctx).Warn("sentiment response was not structured JSON, scanning for label")

	lowered := strings.ToLower(response)
	for _, label := range []string{
		domain.SentimentMixed,
		domain.SentimentPositive,
		domain.SentimentNegative,
		domain.SentimentNeutral,
	} {
		if strings.Contains(lowered, label) {
			return &domain.SentimentResult{Sentiment: label, Confidence: sentimentFallbackConfidence}
		}
	}

	return &domain.SentimentResult{Sentiment: domain.SentimentNeutral, Confidence: sentimentFallbackConfidence}
}

func validLabel(label string) bool {
	switch label {
	case domain.SentimentPositive, domain.SentimentNegative, domain.SentimentNeutral, domain.SentimentMixed:
		return true
	default:
		return false
	}
}
