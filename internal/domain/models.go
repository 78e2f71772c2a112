package domain

import "time"

// TaskType identifies the kind of work an agent performs. It is part of
// cache fingerprints and complexity assessment.
type TaskType string

const (
	TaskSummary     TaskType = "summary"
	TaskActionItems TaskType = "action_items"
	TaskAnalysis    TaskType = "analysis"
	TaskQA          TaskType = "qa"
	TaskSentiment   TaskType = "sentiment"
	TaskSynthesis   TaskType = "synthesis"
	TaskRisk        TaskType = "risk_assessment"
)

// Exchange is one prior question/answer turn of a conversation.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// AgentContext carries the named inputs for one agent execution. Agents
// read it but never mutate the caller's copy; derived fields are attached
// to a clone before forwarding (see WithRetrievedContext).
type AgentContext struct {
	DocumentID    string            `json:"document_id,omitempty"`
	DocumentText  string            `json:"document_text,omitempty"`
	DocumentType  string            `json:"document_type,omitempty"`
	OwnerID       string            `json:"owner_id,omitempty"`
	Question      string            `json:"question,omitempty"`
	UseContext    bool              `json:"use_context,omitempty"`
	SummaryLength string            `json:"summary_length,omitempty"` // brief, medium, detailed
	History       []Exchange        `json:"history,omitempty"`
	Options       map[string]string `json:"options,omitempty"`

	// Derived fields, attached by agents before nested calls.
	RetrievedContext string `json:"-"`
	PriorSummary     string `json:"-"`
}

// Clone returns a shallow copy safe for attaching derived fields without
// touching the caller's context.
func (c *AgentContext) Clone() *AgentContext {
	if c == nil {
		return &AgentContext{}
	}
	cp := *c
	return &cp
}

// WithRetrievedContext returns a copy carrying the assembled retrieval
// block.
func (c *AgentContext) WithRetrievedContext(block string) *AgentContext {
	cp := c.Clone()
	cp.RetrievedContext = block
	return cp
}

// WithPriorSummary returns a copy carrying an upstream agent's summary.
func (c *AgentContext) WithPriorSummary(summary string) *AgentContext {
	cp := c.Clone()
	cp.PriorSummary = summary
	return cp
}

// Priority levels for action items.
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

// ActionItem is one extracted, validated task.
type ActionItem struct {
	Action       string   `json:"action"`
	Assignee     string   `json:"assignee,omitempty"`
	DueDate      string   `json:"due_date,omitempty"` // YYYY-MM-DD or TBD
	Priority     string   `json:"priority"`
	Status       string   `json:"status,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Confidence   float64  `json:"confidence"`
}

// Recommendation is a prioritized suggestion within an analysis.
type Recommendation struct {
	Recommendation string `json:"recommendation"`
	Priority       string `json:"priority,omitempty"`
	Rationale      string `json:"rationale,omitempty"`
}

// Risk is an identified risk with mitigation within an analysis.
type Risk struct {
	Risk       string `json:"risk"`
	Severity   string `json:"severity,omitempty"`
	Mitigation string `json:"mitigation,omitempty"`
}

// Insights is the structured output of the analysis agent.
type Insights struct {
	ExecutiveSummary string           `json:"executive_summary"`
	KeyInsights      []string         `json:"key_insights"`
	Patterns         []string         `json:"patterns"`
	Recommendations  []Recommendation `json:"recommendations"`
	Risks            []Risk           `json:"risks"`
	Opportunities    []string         `json:"opportunities"`
	Confidence       float64          `json:"confidence"`
}

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentMixed    = "mixed"
)

// SentimentResult is the sentiment agent's payload.
type SentimentResult struct {
	Sentiment  string             `json:"sentiment"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores,omitempty"`
}

// Citation points back to the chunk an answer drew from.
type Citation struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// Answer is the QA agent's payload.
type Answer struct {
	Answer      string     `json:"answer"`
	Citations   []Citation `json:"citations,omitempty"`
	ContextUsed int        `json:"context_used"`
}

// ResultMeta carries model and spend metadata for one agent execution.
type ResultMeta struct {
	Tier       string        `json:"tier,omitempty"`
	Model      string        `json:"model,omitempty"`
	Tokens     int           `json:"tokens"`
	Cost       float64       `json:"cost"`
	Duration   time.Duration `json:"duration_ms"`
	Attempts   int           `json:"attempts"`
	FromCache  bool          `json:"from_cache"`
	Complexity string        `json:"complexity,omitempty"`
}

// AgentResult is the terminal output of one agent execution. Exactly one
// payload field is set for a successful result; Error is set instead when
// the orchestrator contains a failure.
type AgentResult struct {
	Agent       string           `json:"agent"`
	Summary     string           `json:"summary,omitempty"`
	ActionItems []ActionItem     `json:"action_items,omitempty"`
	Insights    *Insights        `json:"insights,omitempty"`
	Answer      *Answer          `json:"answer,omitempty"`
	Sentiment   *SentimentResult `json:"sentiment,omitempty"`
	Confidence  float64          `json:"confidence,omitempty"`
	Meta        ResultMeta       `json:"meta"`
	Error       string           `json:"error,omitempty"`
}

// Chunk is one retrievable slice of a stored document. Embeddings are
// precomputed by the ingestion collaborator; the engine only reads them.
type Chunk struct {
	DocumentID string
	Filename   string
	ChunkIndex int
	Text       string
	Embedding  []float64
}

// SearchResult is one ranked similarity match with citation metadata.
// Produced fresh per query, never cached.
type SearchResult struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// SearchScope restricts which chunks a query considers.
type SearchScope struct {
	OwnerID    string
	DocumentID string
}

// ComplexityLevel classifies how demanding a document/task pairing is.
type ComplexityLevel string

const (
	ComplexitySimple   ComplexityLevel = "simple"
	ComplexityModerate ComplexityLevel = "moderate"
	ComplexityComplex  ComplexityLevel = "complex"
)

// ModelTier names a (cost, latency, capability) bundle.
type ModelTier string

const (
	TierFastCheap ModelTier = "fast_cheap"
	TierBalanced  ModelTier = "balanced"
	TierPremium   ModelTier = "premium"
)

// TierConfig is the fixed characteristic tuple of one tier.
type TierConfig struct {
	CostPer1K  float64
	AvgLatency time.Duration
	Capability string
	Models     []string
}

// Requirements are caller-supplied priority weights for model selection.
type Requirements struct {
	AccuracyPriority float64 `json:"accuracy_priority"`
	CostPriority     float64 `json:"cost_priority"`
	SpeedPriority    float64 `json:"speed_priority"`
}

// RoutingDecision is the per-request outcome of model routing. It is never
// persisted beyond the request.
type RoutingDecision struct {
	Tier             ModelTier       `json:"tier"`
	Model            string          `json:"model"`
	Complexity       ComplexityLevel `json:"complexity"`
	EstimatedCost    float64         `json:"estimated_cost"`
	EstimatedLatency time.Duration   `json:"estimated_latency"`
	CacheHit         bool            `json:"cache_hit"`
	CachedPayload    []byte          `json:"-"`
}

// UsageEvent is emitted to the metrics sink after provider calls. The
// engine emits, a peripheral collaborator aggregates.
type UsageEvent struct {
	Service   string
	Operation string
	Tokens    int
	Cost      float64
	Latency   time.Duration
}
