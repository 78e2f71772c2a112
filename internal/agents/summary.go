package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/davidbz/kodama/internal/domain"
	"github.com/davidbz/kodama/internal/observability"
	"github.com/davidbz/kodama/internal/router"
)

const summarySystemPrompt = "You are a precise document summarizer for project teams. " +
	"Summarize only what the document states; do not invent details."

// summaryShapes maps the summary_length hint to the requested output shape
// and token budget. The hint changes the shape, not the algorithm.
//
//nolint:gochecknoglobals // static instruction table
var summaryShapes = map[string]struct {
	instruction string
	maxTokens   int
}{
	"brief":    {"Write a brief summary of 2-3 sentences.", 200},
	"medium":   {"Write a summary of 1-2 paragraphs covering the main points.", 500},
	"detailed": {"Write a detailed multi-paragraph summary covering all significant points.", 1000},
}

// SummaryAgent produces a free-text summary of a document.
type SummaryAgent struct {
	Base
}

// NewSummaryAgent creates the summary agent.
func NewSummaryAgent(
	provider domain.ProviderClient,
	modelRouter *router.ModelRouter,
	metrics domain.MetricsSink,
	cfg Config,
) *SummaryAgent {
	return &SummaryAgent{
		Base: newBase("summary", domain.TaskSummary, provider, modelRouter, metrics, cfg),
	}
}

// Validate requires document text.
func (a *SummaryAgent) Validate(agentCtx *domain.AgentContext) error {
	if agentCtx == nil || strings.TrimSpace(agentCtx.DocumentText) == "" {
		return domain.NewValidationError("document_text", "required")
	}
	return nil
}

// Execute summarizes the document, honoring the summary_length hint.
func (a *SummaryAgent) Execute(ctx context.Context, agentCtx *domain.AgentContext) (*domain.AgentResult, error) {
	if err := a.Validate(agentCtx); err != nil {
		return nil, err
	}

	ctx = observability.WithAgent(ctx, a.name)
	ctx = observability.WithTask(ctx, string(a.task))

	shape, ok := summaryShapes[agentCtx.SummaryLength]
	if !ok {
		shape = summaryShapes["medium"]
	}

	text := truncate(agentCtx.DocumentText, contextWindowChars)
	prompt := fmt.Sprintf("%s\n\nDocument:\n%s", shape.instruction, text)

	summary, meta, err := a.invoke(ctx, text, agentCtx.DocumentType, prompt, summarySystemPrompt, shape.maxTokens, 0.3)
	if err != nil {
		return nil, err
	}

	return &domain.AgentResult{
		Agent:   a.name,
		Summary: strings.TrimSpace(summary),
		Meta:    meta,
	}, nil
}
