package domain

import "context"

// InvokeRequest is a single prompt sent to an LLM provider.
type InvokeRequest struct {
	Prompt       string
	SystemPrompt string
	Model        string
	MaxTokens    int
	Temperature  float64
}

// InvokeResponse is the provider's completed response with spend data.
type InvokeResponse struct {
	Text             string
	Cost             float64
	PromptTokens     int
	CompletionTokens int
}

// ProviderClient is the narrow surface of one LLM/embedding vendor.
// Failures carry a transient/permanent classification (see IsTransient).
type ProviderClient interface {
	// Invoke sends a completion request and returns the full response.
	Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResponse, error)

	// Embed creates a vector embedding from text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// Name returns the provider identifier.
	Name() string
}

// Agent is one specialized extraction capability.
type Agent interface {
	// Name returns the registry key for this agent.
	Name() string

	// Validate fails with a ValidationError when required context fields
	// are absent or malformed. Validation failures are never retried.
	Validate(agentCtx *AgentContext) error

	// Execute runs the agent. The provider call inside is retried on
	// transient failures only.
	Execute(ctx context.Context, agentCtx *AgentContext) (*AgentResult, error)

	// RateLimit returns this agent's budget in requests per minute, used
	// by the orchestrator to throttle fan-out.
	RateLimit() int
}

// ChunkStore supplies precomputed document chunks for similarity search.
// The engine only reads; ingestion and persistence belong to a
// collaborator.
type ChunkStore interface {
	// Chunks returns every chunk visible within the scope.
	Chunks(ctx context.Context, scope SearchScope) ([]Chunk, error)
}

// EmbeddingGenerator creates vector embeddings from text.
type EmbeddingGenerator interface {
	// Generate creates a vector embedding from text.
	Generate(ctx context.Context, text string) ([]float64, error)

	// Dimension returns the vector dimension.
	Dimension() int
}

// Searcher performs ranked similarity search over stored chunks.
type Searcher interface {
	// Search returns ranked results at or above the threshold, truncated
	// to limit.
	Search(ctx context.Context, query string, scope SearchScope, limit int, threshold float64) ([]*SearchResult, error)
}

// MetricsSink receives usage events. Implementations must be cheap and
// non-blocking; the engine never waits on the sink.
type MetricsSink interface {
	Record(ctx context.Context, event UsageEvent)
}
