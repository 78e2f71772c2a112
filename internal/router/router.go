// Package router implements cost/latency-aware model selection: complexity
// assessment, a deterministic tier decision table, and response-cache
// short-circuiting.
package router

import (
	"context"
	"strings"
	"time"

	"github.com/davidbz/kodama/internal/cache"
	"github.com/davidbz/kodama/internal/domain"
	"github.com/davidbz/kodama/internal/observability"
)

const (
	simpleWordLimit   = 400
	moderateWordLimit = 1500

	// tokensPerWord approximates provider tokenization for cost
	// estimates.
	tokensPerWord = 1.3
)

// tierConfigs is the fixed characteristic tuple per tier. The first model
// in each list is the tier's default.
//
//nolint:gochecknoglobals // static decision table
var tierConfigs = map[domain.ModelTier]domain.TierConfig{
	domain.TierFastCheap: {
		CostPer1K:  0.0005,
		AvgLatency: 800 * time.Millisecond,
		Capability: "short summaries, classification, simple extraction",
		Models:     []string{"gpt-4o-mini", "gpt-3.5-turbo"},
	},
	domain.TierBalanced: {
		CostPer1K:  0.01,
		AvgLatency: 2 * time.Second,
		Capability: "general analysis and structured extraction",
		Models:     []string{"gpt-4-turbo"},
	},
	domain.TierPremium: {
		CostPer1K:  0.03,
		AvgLatency: 5 * time.Second,
		Capability: "cross-document synthesis, nuanced reasoning",
		Models:     []string{"gpt-4o", "gpt-4"},
	},
}

// RouteRequest describes one request to be routed.
type RouteRequest struct {
	Task         domain.TaskType
	Input        string
	DocumentType string
	Requirements domain.Requirements
}

// ModelRouter selects a model tier per request, checking the response
// cache first.
type ModelRouter struct {
	responses *cache.Cache[[]byte]
}

// NewModelRouter creates a router with a response cache of the given
// bounds.
func NewModelRouter(cacheSize int, cacheTTL time.Duration) *ModelRouter {
	return &ModelRouter{
		responses: cache.New[[]byte](cacheSize, cacheTTL),
	}
}

// AssessComplexity classifies a document/task pairing from word count,
// document type, and task type. Technical and requirements documents bump
// one level; synthesis and risk tasks bump simple to moderate.
func AssessComplexity(text, documentType string, task domain.TaskType) domain.ComplexityLevel {
	words := len(strings.Fields(text))

	level := domain.ComplexitySimple
	switch {
	case words >= moderateWordLimit:
		level = domain.ComplexityComplex
	case words >= simpleWordLimit:
		level = domain.ComplexityModerate
	}

	switch strings.ToLower(documentType) {
	case "technical", "requirements":
		level = bump(level)
	}

	if level == domain.ComplexitySimple && (task == domain.TaskSynthesis || task == domain.TaskRisk) {
		level = domain.ComplexityModerate
	}

	return level
}

func bump(level domain.ComplexityLevel) domain.ComplexityLevel {
	switch level {
	case domain.ComplexitySimple:
		return domain.ComplexityModerate
	case domain.ComplexityModerate:
		return domain.ComplexityComplex
	default:
		return domain.ComplexityComplex
	}
}

// SelectModel is a pure decision table over (complexity, requirements):
// identical inputs always yield the identical (tier, model).
func SelectModel(complexity domain.ComplexityLevel, req domain.Requirements) (domain.ModelTier, string) {
	var tier domain.ModelTier

	switch complexity {
	case domain.ComplexitySimple:
		tier = domain.TierFastCheap
		if req.AccuracyPriority > req.CostPriority && req.AccuracyPriority > req.SpeedPriority {
			tier = domain.TierBalanced
		}
	case domain.ComplexityModerate:
		switch {
		case req.SpeedPriority > req.AccuracyPriority && req.SpeedPriority > req.CostPriority:
			tier = domain.TierFastCheap
		case req.AccuracyPriority > req.CostPriority && req.AccuracyPriority > req.SpeedPriority:
			tier = domain.TierPremium
		default:
			tier = domain.TierBalanced
		}
	case domain.ComplexityComplex:
		tier = domain.TierPremium
		if req.CostPriority > req.AccuracyPriority && req.CostPriority > req.SpeedPriority {
			tier = domain.TierBalanced
		}
	default:
		tier = domain.TierBalanced
	}

	return tier, tierConfigs[tier].Models[0]
}

// TierFor returns the static configuration of a tier.
func TierFor(tier domain.ModelTier) domain.TierConfig {
	return tierConfigs[tier]
}

// Route checks the response cache for a fingerprint of (task, input
// prefix); a hit returns the cached payload with zero estimated cost and
// latency. On miss it assesses complexity, selects a model, and estimates
// cost as (tokens/1000) * tier cost with tokens ~= words * 1.3.
func (r *ModelRouter) Route(ctx context.Context, req *RouteRequest) *domain.RoutingDecision {
	key := domain.Fingerprint(req.Task, req.Input)

	if payload, ok := r.responses.Get(key); ok {
		// FromContext already carries the task field.
		observability.FromContext(ctx).Info("response cache hit",
			observability.Int("payload_size", len(payload)))
		return &domain.RoutingDecision{
			CacheHit:      true,
			CachedPayload: payload,
		}
	}

	complexity := AssessComplexity(req.Input, req.DocumentType, req.Task)
	tier, model := SelectModel(complexity, req.Requirements)
	cfg := tierConfigs[tier]

	tokens := float64(len(strings.Fields(req.Input))) * tokensPerWord

	return &domain.RoutingDecision{
		Tier:             tier,
		Model:            model,
		Complexity:       complexity,
		EstimatedCost:    tokens / 1000.0 * cfg.CostPer1K,
		EstimatedLatency: cfg.AvgLatency,
		CacheHit:         false,
	}
}

// StoreResponse caches a successful response payload under the request's
// fingerprint.
func (r *ModelRouter) StoreResponse(task domain.TaskType, input string, payload []byte) {
	r.responses.Set(domain.Fingerprint(task, input), payload)
}

// CacheStats exposes response cache counters.
func (r *ModelRouter) CacheStats() cache.Stats {
	return r.responses.Stats()
}
