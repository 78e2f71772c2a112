package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/davidbz/kodama/internal/domain"
	"github.com/davidbz/kodama/internal/observability"
	"github.com/davidbz/kodama/internal/router"
)

const qaSystemPrompt = "You answer questions about project documents using ONLY the supplied context. " +
	"Cite sources inline as [Document: filename, Chunk: N]. " +
	"If the context does not answer the question, say so explicitly instead of guessing."

const (
	qaSearchLimit     = 5
	qaSearchThreshold = 0.35
	qaContextChars    = 4000
	qaHistoryTurns    = 3
)

// QAAgent answers questions grounded in retrieved document context.
type QAAgent struct {
	Base
	searcher domain.Searcher
}

// NewQAAgent creates the retrieval-augmented question answering agent.
func NewQAAgent(
	provider domain.ProviderClient,
	modelRouter *router.ModelRouter,
	metrics domain.MetricsSink,
	searcher domain.Searcher,
	cfg Config,
) *QAAgent {
	return &QAAgent{
		Base:     newBase("qa", domain.TaskQA, provider, modelRouter, metrics, cfg),
		searcher: searcher,
	}
}

// Validate requires a question.
func (a *QAAgent) Validate(agentCtx *domain.AgentContext) error {
	if agentCtx == nil || strings.TrimSpace(agentCtx.Question) == "" {
		return domain.NewValidationError("question", "required")
	}
	return nil
}

// Execute retrieves context when requested, assembles a bounded context
// block plus recent conversation turns, and asks the provider to answer
// from that context only. A retrieval failure propagates: without a query
// embedding the grounding is meaningless.
func (a *QAAgent) Execute(ctx context.Context, agentCtx *domain.AgentContext) (*domain.AgentResult, error) {
	if err := a.Validate(agentCtx); err != nil {
		return nil, err
	}

	ctx = observability.WithAgent(ctx, a.name)
	ctx = observability.WithTask(ctx, string(a.task))
	logger := observability.FromContext(ctx)

	var results []*domain.SearchResult
	if agentCtx.UseContext {
		scope := domain.SearchScope{
			OwnerID:    agentCtx.OwnerID,
			DocumentID: agentCtx.DocumentID,
		}

		var err error
		results, err = a.searcher.Search(ctx, agentCtx.Question, scope, qaSearchLimit, qaSearchThreshold)
		if err != nil {
			return nil, fmt.Errorf("context retrieval failed: %w", err)
		}

		logger.Debug("retrieved context for question",
			observability.Int("results", len(results)))
	}

	block, citations := buildContextBlock(results)
	enriched := agentCtx.WithRetrievedContext(block)

	prompt := buildQAPrompt(enriched)

	// The route input carries the retrieval scope: the same question
	// answered against different owners or documents must never share a
	// cached response.
	routeInput := agentCtx.Question
	if agentCtx.UseContext {
		routeInput = fmt.Sprintf("%s|%s|%s", agentCtx.OwnerID, agentCtx.DocumentID, agentCtx.Question)
	}

	answer, meta, err := a.invoke(ctx, routeInput, agentCtx.DocumentType, prompt, qaSystemPrompt, 1000, 0.3)
	if err != nil {
		return nil, err
	}

	return &domain.AgentResult{
		Agent: a.name,
		Answer: &domain.Answer{
			Answer:      strings.TrimSpace(answer),
			Citations:   citations,
			ContextUsed: len(citations),
		},
		Meta: meta,
	}, nil
}

// buildContextBlock assembles a bounded block of retrieved chunks with
// their citations. Chunks past the character budget are dropped whole.
func buildContextBlock(results []*domain.SearchResult) (string, []domain.Citation) {
	var (
		builder   strings.Builder
		citations []domain.Citation
	)

	for _, r := range results {
		entry := fmt.Sprintf("[Document: %s, Chunk: %d]\n%s\n\n", r.Filename, r.ChunkIndex, r.Text)
		if builder.Len()+len(entry) > qaContextChars {
			break
		}

		builder.WriteString(entry)
		citations = append(citations, domain.Citation{
			DocumentID: r.DocumentID,
			Filename:   r.Filename,
			ChunkIndex: r.ChunkIndex,
			Score:      r.Score,
		})
	}

	return strings.TrimSpace(builder.String()), citations
}

func buildQAPrompt(agentCtx *domain.AgentContext) string {
	var parts []string

	if agentCtx.RetrievedContext != "" {
		parts = append(parts, fmt.Sprintf("Context:\n%s", agentCtx.RetrievedContext))
	} else {
		parts = append(parts, "Context: (none retrieved)")
	}

	history := agentCtx.History
	if len(history) > qaHistoryTurns {
		history = history[len(history)-qaHistoryTurns:]
	}
	for _, turn := range history {
		parts = append(parts, fmt.Sprintf("Previous Q: %s\nPrevious A: %s", turn.Question, turn.Answer))
	}

	parts = append(parts, fmt.Sprintf("Question: %s", agentCtx.Question))

	return strings.Join(parts, "\n\n")
}
