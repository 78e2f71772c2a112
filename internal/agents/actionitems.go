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

const actionItemSystemPrompt = "You extract action items from project documents. " +
	"Respond with a JSON array only, no prose. Each element: " +
	`{"action","assignee","due_date","priority","status","dependencies","confidence"}. ` +
	`due_date is YYYY-MM-DD or "TBD", priority is HIGH, MEDIUM or LOW, ` +
	"confidence is a number between 0 and 1. Urgent or blocking work is HIGH priority."

// ActionItemAgent extracts a validated list of action items.
type ActionItemAgent struct {
	Base
}

// NewActionItemAgent creates the action item agent.
func NewActionItemAgent(
	provider domain.ProviderClient,
	modelRouter *router.ModelRouter,
	metrics domain.MetricsSink,
	cfg Config,
) *ActionItemAgent {
	return &ActionItemAgent{
		Base: newBase("action_items", domain.TaskActionItems, provider, modelRouter, metrics, cfg),
	}
}

// Validate requires document text.
func (a *ActionItemAgent) Validate(agentCtx *domain.AgentContext) error {
	if agentCtx == nil || strings.TrimSpace(agentCtx.DocumentText) == "" {
		return domain.NewValidationError("document_text", "required")
	}
	return nil
}

// Execute extracts action items. Malformed provider output degrades to an
// empty list with a recorded warning; it never raises.
func (a *ActionItemAgent) Execute(ctx context.Context, agentCtx *domain.AgentContext) (*domain.AgentResult, error) {
	if err := a.Validate(agentCtx); err != nil {
		return nil, err
	}

	ctx = observability.WithAgent(ctx, a.name)
	ctx = observability.WithTask(ctx, string(a.task))

	text := truncate(agentCtx.DocumentText, contextWindowChars)
	prompt := fmt.Sprintf("Extract every action item from this document:\n\n%s", text)

	raw, meta, err := a.invoke(ctx, text, agentCtx.DocumentType, prompt, actionItemSystemPrompt, 1500, 0.2)
	if err != nil {
		return nil, err
	}

	items := ParseActionItems(ctx, raw)

	return &domain.AgentResult{
		Agent:       a.name,
		ActionItems: items,
		Meta:        meta,
	}, nil
}

// rawActionItem mirrors the provider's loosely-typed JSON before
// validation.
type rawActionItem struct {
	Action       string   `json:"action"`
	Assignee     string   `json:"assignee"`
	DueDate      string   `json:"due_date"`
	Priority     string   `json:"priority"`
	Status       string   `json:"status"`
	Dependencies []string `json:"dependencies"`
	Confidence   *float64 `json:"confidence"`
}

// ParseActionItems parses and validates a provider response. Items missing
// action, priority, or confidence, with a priority outside the enum, or
// with confidence outside [0,1] are dropped. Non-JSON output yields an
// empty list, never an error.
func ParseActionItems(ctx context.Context, response string) []domain.ActionItem {
	logger := observability.FromContext(ctx)

	payload := extractJSON(response, '[', ']')
	if payload == "" {
		logger.Warn("action item response contained no JSON array, returning empty list")
		return []domain.ActionItem{}
	}

	var raw []rawActionItem
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		logger.Warn("action item response was not valid JSON, returning empty list",
			observability.Error(&domain.ParseError{Agent: "action_items", Err: err}))
		return []domain.ActionItem{}
	}

	items := make([]domain.ActionItem, 0, len(raw))
	for _, r := range raw {
		if !validActionItem(r) {
			logger.Warn("dropping malformed action item",
				observability.String("action", r.Action),
				observability.String("priority", r.Priority))
			continue
		}

		items = append(items, domain.ActionItem{
			Action:       r.Action,
			Assignee:     r.Assignee,
			DueDate:      r.DueDate,
			Priority:     r.Priority,
			Status:       r.Status,
			Dependencies: r.Dependencies,
			Confidence:   *r.Confidence,
		})
	}

	return items
}

func validActionItem(r rawActionItem) bool {
	if strings.TrimSpace(r.Action) == "" || r.Confidence == nil {
		return false
	}
	if *r.Confidence < 0 || *r.Confidence > 1 {
		return false
	}

	switch r.Priority {
	case domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
		return true
	default:
		return false
	}
}
