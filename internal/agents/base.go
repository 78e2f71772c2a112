// Package agents contains the specialized extraction agents, their shared
// execution contract, and the orchestrator that runs them.
package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/davidbz/kodama/internal/domain"
	"github.com/davidbz/kodama/internal/observability"
	"github.com/davidbz/kodama/internal/router"
)

const (
	defaultMaxRetries  = 3
	defaultRateLimit   = 60 // requests per minute
	defaultCallTimeout = 60 * time.Second

	// contextWindowChars bounds how much document text reaches a prompt.
	contextWindowChars = 12000
)

// Base carries the collaborators and retry policy shared by every agent.
type Base struct {
	name         string
	task         domain.TaskType
	provider     domain.ProviderClient
	router       *router.ModelRouter
	metrics      domain.MetricsSink
	maxRetries   int
	rateLimit    int
	callTimeout  time.Duration
	requirements domain.Requirements
}

// Config tunes the shared agent behavior.
type Config struct {
	MaxRetries   int
	RateLimit    int
	CallTimeout  time.Duration
	Requirements domain.Requirements
}

func newBase(
	name string,
	task domain.TaskType,
	provider domain.ProviderClient,
	modelRouter *router.ModelRouter,
	metrics domain.MetricsSink,
	cfg Config,
) Base {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}

	return Base{
		name:         name,
		task:         task,
		provider:     provider,
		router:       modelRouter,
		metrics:      metrics,
		maxRetries:   cfg.MaxRetries,
		rateLimit:    cfg.RateLimit,
		callTimeout:  cfg.CallTimeout,
		requirements: cfg.Requirements,
	}
}

// Name returns the registry key for this agent.
func (b *Base) Name() string {
	return b.name
}

// RateLimit returns this agent's budget in requests per minute.
func (b *Base) RateLimit() int {
	return b.rateLimit
}

// invoke routes the request, serves cached responses, and otherwise calls
// the provider with the retry policy: attempts are strictly sequential, a
// transient failure is logged and retried up to maxRetries, the last error
// is surfaced when attempts are exhausted. Validation errors never reach
// this path.
func (b *Base) invoke(
	ctx context.Context,
	routeInput string,
	documentType string,
	prompt, systemPrompt string,
	maxTokens int,
	temperature float64,
) (string, domain.ResultMeta, error) {
	decision := b.router.Route(ctx, &router.RouteRequest{
		Task:         b.task,
		Input:        routeInput,
		DocumentType: documentType,
		Requirements: b.requirements,
	})

	if decision.CacheHit {
		return string(decision.CachedPayload), domain.ResultMeta{
			FromCache: true,
		}, nil
	}

	ctx = observability.WithModel(ctx, decision.Model)
	logger := observability.FromContext(ctx)

	req := &domain.InvokeRequest{
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		Model:        decision.Model,
		MaxTokens:    maxTokens,
		Temperature:  temperature,
	}

	var lastErr error
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		resp, err := b.callProvider(ctx, req)
		if err == nil {
			b.router.StoreResponse(b.task, routeInput, []byte(resp.Text))

			tokens := resp.PromptTokens + resp.CompletionTokens
			b.metrics.Record(ctx, domain.UsageEvent{
				Service:   b.provider.Name(),
				Operation: string(b.task),
				Tokens:    tokens,
				Cost:      resp.Cost,
				Latency:   decision.EstimatedLatency,
			})

			return resp.Text, domain.ResultMeta{
				Tier:       string(decision.Tier),
				Model:      decision.Model,
				Tokens:     tokens,
				Cost:       resp.Cost,
				Attempts:   attempt,
				Complexity: string(decision.Complexity),
			}, nil
		}

		lastErr = err
		if !domain.IsTransient(err) {
			logger.Error("provider call failed permanently",
				observability.Int("attempt", attempt),
				observability.Error(err))
			return "", domain.ResultMeta{Attempts: attempt}, err
		}

		logger.Warn("provider call failed, will retry",
			observability.Int("attempt", attempt),
			observability.Int("max_retries", b.maxRetries),
			observability.Error(err))
	}

	return "", domain.ResultMeta{Attempts: b.maxRetries},
		fmt.Errorf("provider call failed after %d attempts: %w", b.maxRetries, lastErr)
}

// callProvider runs one attempt under the per-call timeout. A deadline hit
// is classified transient so the retry loop picks it up.
func (b *Base) callProvider(ctx context.Context, req *domain.InvokeRequest) (*domain.InvokeResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	resp, err := b.provider.Invoke(callCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !domain.IsTransient(err) {
			return nil, domain.Transient(err)
		}
		return nil, err
	}

	return resp, nil
}

// truncate bounds text to the fixed context window.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}
