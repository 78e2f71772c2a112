package observability

import (
	"context"
	"log/slog"

	"github.com/davidbz/kodama/internal/domain"
)

// UsageBus implements domain.MetricsSink by publishing usage events to a
// structured log stream. Aggregation and billing belong to a downstream
// collaborator consuming these events.
type UsageBus struct {
	logger *slog.Logger
}

// NewUsageBus creates a new usage event bus.
func NewUsageBus(logger *slog.Logger) *UsageBus {
	return &UsageBus{
		logger: logger,
	}
}

// Record publishes one usage event.
func (b *UsageBus) Record(ctx context.Context, event domain.UsageEvent) {
	if b.logger == nil {
		return
	}

	b.logger.InfoContext(ctx, "usage",
		"service", event.Service,
		"operation", event.Operation,
		"tokens", event.Tokens,
		"cost", event.Cost,
		"latency_ms", event.Latency.Milliseconds(),
	)
}
