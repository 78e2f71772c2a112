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

const analysisSystemPrompt = "You analyze project documents and respond with a single JSON object only: " +
	`{"executive_summary","key_insights","patterns","recommendations":[{"recommendation","priority","rationale"}],` +
	`"risks":[{"risk","severity","mitigation"}],"opportunities","confidence"}.`

const degradedConfidence = 0.5

// analysisInstructions are domain-tuned per document type, with a generic
// fallback.
//
//nolint:gochecknoglobals // static instruction table
var analysisInstructions = map[string]string{
	"project_plan": "Analyze this project plan. Focus on milestone feasibility, " +
		"resource allocation, scheduling risks, and dependency chains.",
	"status_report": "Analyze this status report. Focus on progress against plan, " +
		"blockers, trend changes since the last period, and escalations needed.",
	"meeting_notes": "Analyze these meeting notes. Focus on decisions made, " +
		"unresolved discussions, commitments, and follow-up owners.",
	"requirements": "Analyze this requirements document. Focus on ambiguity, " +
		"completeness, conflicting requirements, and testability.",
	"generic": "Analyze this document for a project team. Surface the insights, " +
		"patterns, risks, and opportunities that matter most.",
}

// AnalysisAgent produces a structured insight object for a document.
type AnalysisAgent struct {
	Base
}

// NewAnalysisAgent creates the analysis agent.
func NewAnalysisAgent(
	provider domain.ProviderClient,
	modelRouter *router.ModelRouter,
	metrics domain.MetricsSink,
	cfg Config,
) *AnalysisAgent {
	return &AnalysisAgent{
		Base: newBase("analysis", domain.TaskAnalysis, provider, modelRouter, metrics, cfg),
	}
}

// Validate requires document text.
func (a *AnalysisAgent) Validate(agentCtx *domain.AgentContext) error {
	if agentCtx == nil || strings.TrimSpace(agentCtx.DocumentText) == "" {
		return domain.NewValidationError("document_text", "required")
	}
	return nil
}

// Execute analyzes the document with the instruction set matching its
// type. Unparseable output degrades to the raw text as the executive
// summary with confidence 0.5; it never raises.
func (a *AnalysisAgent) Execute(ctx context.Context, agentCtx *domain.AgentContext) (*domain.AgentResult, error) {
	if err := a.Validate(agentCtx); err != nil {
		return nil, err
	}

	ctx = observability.WithAgent(ctx, a.name)
	ctx = observability.WithTask(ctx, string(a.task))

	instruction, ok := analysisInstructions[strings.ToLower(agentCtx.DocumentType)]
	if !ok {
		instruction = analysisInstructions["generic"]
	}

	text := truncate(agentCtx.DocumentText, contextWindowChars)
	prompt := fmt.Sprintf("%s\n\nDocument:\n%s", instruction, text)
	if agentCtx.PriorSummary != "" {
		prompt = fmt.Sprintf("%s\n\nExisting summary for reference:\n%s", prompt, agentCtx.PriorSummary)
	}

	raw, meta, err := a.invoke(ctx, text, agentCtx.DocumentType, prompt, analysisSystemPrompt, 2000, 0.4)
	if err != nil {
		return nil, err
	}

	insights := ParseInsights(ctx, raw)

	return &domain.AgentResult{
		Agent:      a.name,
		Insights:   insights,
		Confidence: insights.Confidence,
		Meta:       meta,
	}, nil
}

// ParseInsights parses the structured analysis payload, degrading to the
// raw text as executive summary on any parse failure.
func ParseInsights(ctx context.Context, response string) *domain.Insights {
	payload := extractJSON(response, '{', '}')
	if payload != "" {
		var insights domain.Insights
		if err := json.Unmarshal([]byte(payload), &insights); err == nil {
			if insights.Confidence < 0 || insights.Confidence > 1 {
				insights.Confidence = degradedConfidence
			}
			return &insights
		}
	}

	observability.FromContext(ctx).Warn("analysis response was not structured JSON, degrading to raw summary")

	return &domain.Insights{
		ExecutiveSummary: strings.TrimSpace(response),
		KeyInsights:      []string{},
		Patterns:         []string{},
		Recommendations:  []domain.Recommendation{},
		Risks:            []domain.Risk{},
		Opportunities:    []string{},
		Confidence:       degradedConfidence,
	}
}
