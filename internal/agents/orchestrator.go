package agents

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/davidbz/kodama/internal/domain"
	"github.com/davidbz/kodama/internal/observability"
)

// Report aggregates the fixed document pipeline's outputs.
type Report struct {
	DocumentID  string              `json:"document_id"`
	Summary     *domain.AgentResult `json:"summary"`
	Insights    *domain.AgentResult `json:"insights"`
	ActionItems *domain.AgentResult `json:"action_items"`
}

// Orchestrator owns the name-to-agent registry and centralizes error
// containment for single, parallel, and pipelined execution. The registry
// is populated at startup and read-mostly thereafter.
type Orchestrator struct {
	mu     sync.RWMutex
	agents map[string]domain.Agent
}

// NewOrchestrator creates an empty orchestrator. Register agents at the
// composition root before serving requests.
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{
		agents: make(map[string]domain.Agent),
	}
}

// Register adds an agent to the registry.
func (o *Orchestrator) Register(agent domain.Agent) error {
	if agent == nil {
		return errors.New("agent cannot be nil")
	}

	name := agent.Name()
	if name == "" {
		return errors.New("agent name cannot be empty")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.agents[name]; exists {
		return fmt.Errorf("agent %s already registered", name)
	}

	o.agents[name] = agent
	return nil
}

// Get retrieves an agent by name.
func (o *Orchestrator) Get(name string) (domain.Agent, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	agent, ok := o.agents[name]
	return agent, ok
}

// Names lists registered agent names.
func (o *Orchestrator) Names() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	names := make([]string, 0, len(o.agents))
	for name := range o.agents {
		names = append(names, name)
	}
	return names
}

// ExecuteAgent runs one agent. With handleErrors true any failure is
// contained as a result-shaped error object; otherwise the error
// propagates for all-or-nothing callers.
func (o *Orchestrator) ExecuteAgent(
	ctx context.Context,
	name string,
	agentCtx *domain.AgentContext,
	handleErrors bool,
) (*domain.AgentResult, error) {
	agent, ok := o.Get(name)
	if !ok {
		err := fmt.Errorf("%w: %s", domain.ErrAgentNotFound, name)
		if handleErrors {
			return errorResult(name, err), nil
		}
		return nil, err
	}

	result, err := agent.Execute(ctx, agentCtx)
	if err != nil {
		observability.FromContext(ctx).Error("agent execution failed",
			observability.String("agent", name),
			observability.Error(err))

		if handleErrors {
			return errorResult(name, err), nil
		}
		return nil, err
	}

	return result, nil
}

// ExecuteParallel fans out independent agents concurrently and joins all
// results, keyed by agent name. Every failure is contained per agent so a
// failing agent never cancels its siblings. Concurrency is throttled by
// the smallest rate budget among the requested agents.
func (o *Orchestrator) ExecuteParallel(
	ctx context.Context,
	names []string,
	agentCtx *domain.AgentContext,
) map[string]*domain.AgentResult {
	results := make(map[string]*domain.AgentResult, len(names))

	var mu sync.Mutex
	var group errgroup.Group
	group.SetLimit(o.concurrencyLimit(names))

	for _, name := range names {
		group.Go(func() error {
			result, _ := o.ExecuteAgent(ctx, name, agentCtx, true)

			mu.Lock()
			results[name] = result
			mu.Unlock()
			return nil
		})
	}

	// Contained errors never surface through the group.
	_ = group.Wait()

	return results
}

// ProcessDocument runs the fixed pipeline summary -> analysis -> action
// items, threading the summary into the analysis context. Pipeline steps
// are error-contained individually so a single failing stage still yields
// a partial report.
func (o *Orchestrator) ProcessDocument(ctx context.Context, documentID, text string) (*Report, error) {
	if text == "" {
		return nil, domain.NewValidationError("document_text", "required")
	}

	agentCtx := &domain.AgentContext{
		DocumentID:   documentID,
		DocumentText: text,
	}

	summary, _ := o.ExecuteAgent(ctx, "summary", agentCtx, true)

	analysisCtx := agentCtx
	if summary != nil && summary.Error == "" {
		analysisCtx = agentCtx.WithPriorSummary(summary.Summary)
	}
	insights, _ := o.ExecuteAgent(ctx, "analysis", analysisCtx, true)

	actionItems, _ := o.ExecuteAgent(ctx, "action_items", agentCtx, true)

	return &Report{
		DocumentID:  documentID,
		Summary:     summary,
		Insights:    insights,
		ActionItems: actionItems,
	}, nil
}

// concurrencyLimit derives a fan-out limit from the smallest per-minute
// rate budget of the requested agents. Budgets throttle fan-out, they
// never block an individual call indefinitely.
func (o *Orchestrator) concurrencyLimit(names []string) int {
	minBudget := 0
	for _, name := range names {
		agent, ok := o.Get(name)
		if !ok {
			continue
		}
		if budget := agent.RateLimit(); budget > 0 && (minBudget == 0 || budget < minBudget) {
			minBudget = budget
		}
	}

	if minBudget == 0 {
		return len(names) + 1
	}

	limit := minBudget/60 + 1
	if limit < 1 {
		limit = 1
	}
	return limit
}

func errorResult(name string, err error) *domain.AgentResult {
	return &domain.AgentResult{
		Agent: name,
		Error: err.Error(),
	}
}
