package agents_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/kodama/internal/agents"
	"github.com/davidbz/kodama/internal/domain"
)

func TestQAAgent_MissingQuestionRejected(t *testing.T) {
	provider := &stubProvider{}
	agent := agents.NewQAAgent(provider, newRouter(), nopSink{}, &stubSearcher{}, testConfig(1))

	_, err := agent.Execute(context.Background(), &domain.AgentContext{Question: "  "})
	require.Error(t, err)
	require.True(t, domain.IsValidation(err))
	require.Equal(t, 0, provider.callCount())
}

func TestQAAgent_RetrievedContextCitedInPrompt(t *testing.T) {
	ctx := context.Background()
	searcher := &stubSearcher{results: []*domain.SearchResult{
		{DocumentID: "doc-1", Filename: "plan.md", ChunkIndex: 2, Text: "The deadline is March 14.", Score: 0.91},
		{DocumentID: "doc-1", Filename: "plan.md", ChunkIndex: 5, Text: "Alice owns the rollout.", Score: 0.72},
	}}
	provider := &stubProvider{script: []stubResult{
		{text: "The deadline is March 14 [Document: plan.md, Chunk: 2]."},
	}}

	agent := agents.NewQAAgent(provider, newRouter(), nopSink{}, searcher, testConfig(1))

	result, err := agent.Execute(ctx, &domain.AgentContext{
		Question:   "When is the deadline?",
		OwnerID:    "tenant-1",
		UseContext: true,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Answer)

	prompt := provider.lastRequest().Prompt
	require.Contains(t, prompt, "[Document: plan.md, Chunk: 2]")
	require.Contains(t, prompt, "The deadline is March 14.")
	require.Contains(t, prompt, "Question: When is the deadline?")

	require.Len(t, result.Answer.Citations, 2)
	require.Equal(t, 2, result.Answer.ContextUsed)
	require.Equal(t, "plan.md", result.Answer.Citations[0].Filename)
	require.Equal(t, 2, result.Answer.Citations[0].ChunkIndex)
	require.InEpsilon(t, 0.91, result.Answer.Citations[0].Score, 0.001)
}

func TestQAAgent_ScopePassedToSearcher(t *testing.T) {
	searcher := &stubSearcher{}
	provider := &stubProvider{script: []stubResult{{text: "No answer in context."}}}
	agent := agents.NewQAAgent(provider, newRouter(), nopSink{}, searcher, testConfig(1))

	_, err := agent.Execute(context.Background(), &domain.AgentContext{
		Question:   "Who owns the rollout?",
		OwnerID:    "tenant-1",
		DocumentID: "doc-7",
		UseContext: true,
	})
	require.NoError(t, err)

	require.Len(t, searcher.scopes, 1)
	require.Equal(t, "tenant-1", searcher.scopes[0].OwnerID)
	require.Equal(t, "doc-7", searcher.scopes[0].DocumentID)
	require.Equal(t, []string{"Who owns the rollout?"}, searcher.queries)
}

func TestQAAgent_NoContextSkipsSearch(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("searcher must not be called")}
	provider := &stubProvider{script: []stubResult{{text: "Answer."}}}
	agent := agents.NewQAAgent(provider, newRouter(), nopSink{}, searcher, testConfig(1))

	result, err := agent.Execute(context.Background(), &domain.AgentContext{
		Question: "What is the plan?",
	})
	require.NoError(t, err)
	require.Empty(t, searcher.queries)
	require.Contains(t, provider.lastRequest().Prompt, "Context: (none retrieved)")
	require.Equal(t, 0, result.Answer.ContextUsed)
}

func TestQAAgent_SearchFailurePropagates(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("redis down")}
	provider := &stubProvider{}
	agent := agents.NewQAAgent(provider, newRouter(), nopSink{}, searcher, testConfig(1))

	_, err := agent.Execute(context.Background(), &domain.AgentContext{
		Question:   "Anything?",
		UseContext: true,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "context retrieval failed")
	require.Equal(t, 0, provider.callCount())
}

func TestQAAgent_HistoryLimitedToRecentTurns(t *testing.T) {
	provider := &stubProvider{script: []stubResult{{text: "Answer."}}}
	agent := agents.NewQAAgent(provider, newRouter(), nopSink{}, &stubSearcher{}, testConfig(1))

	_, err := agent.Execute(context.Background(), &domain.AgentContext{
		Question: "And now?",
		History: []domain.Exchange{
			{Question: "q-one", Answer: "a-one"},
			{Question: "q-two", Answer: "a-two"},
			{Question: "q-three", Answer: "a-three"},
			{Question: "q-four", Answer: "a-four"},
		},
	})
	require.NoError(t, err)

	prompt := provider.lastRequest().Prompt
	require.NotContains(t, prompt, "q-one")
	require.Contains(t, prompt, "q-two")
	require.Contains(t, prompt, "q-four")
}

func TestQAAgent_CachedAnswersNeverCrossScopes(t *testing.T) {
	ctx := context.Background()
	searcher := &stubSearcher{results: []*domain.SearchResult{
		{DocumentID: "doc-a", Filename: "a.md", ChunkIndex: 0, Text: "Tenant A launches in March.", Score: 0.9},
	}}
	provider := &stubProvider{script: []stubResult{
		{text: "March, per tenant A's plan."},
		{text: "June, per tenant B's plan."},
	}}

	// One router, one response cache, two tenants asking the same question.
	agent := agents.NewQAAgent(provider, newRouter(), nopSink{}, searcher, testConfig(1))
	question := "When is the launch?"

	first, err := agent.Execute(ctx, &domain.AgentContext{
		Question:   question,
		OwnerID:    "tenant-a",
		UseContext: true,
	})
	require.NoError(t, err)
	require.False(t, first.Meta.FromCache)

	searcher.results = []*domain.SearchResult{
		{DocumentID: "doc-b", Filename: "b.md", ChunkIndex: 0, Text: "Tenant B launches in June.", Score: 0.9},
	}

	second, err := agent.Execute(ctx, &domain.AgentContext{
		Question:   question,
		OwnerID:    "tenant-b",
		UseContext: true,
	})
	require.NoError(t, err)
	require.False(t, second.Meta.FromCache)
	require.Equal(t, 2, provider.callCount())
	require.Equal(t, "June, per tenant B's plan.", second.Answer.Answer)

	// The same tenant repeating its question is still served from cache.
	repeat, err := agent.Execute(ctx, &domain.AgentContext{
		Question:   question,
		OwnerID:    "tenant-a",
		UseContext: true,
	})
	require.NoError(t, err)
	require.True(t, repeat.Meta.FromCache)
	require.Equal(t, 2, provider.callCount())
	require.Equal(t, "March, per tenant A's plan.", repeat.Answer.Answer)
}

func TestQAAgent_DocumentScopeSeparatesCache(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{script: []stubResult{
		{text: "Answer for doc-1."},
		{text: "Answer for doc-2."},
	}}
	agent := agents.NewQAAgent(provider, newRouter(), nopSink{}, &stubSearcher{}, testConfig(1))

	first, err := agent.Execute(ctx, &domain.AgentContext{
		Question: "What changed?", OwnerID: "tenant-a", DocumentID: "doc-1", UseContext: true,
	})
	require.NoError(t, err)
	require.False(t, first.Meta.FromCache)

	second, err := agent.Execute(ctx, &domain.AgentContext{
		Question: "What changed?", OwnerID: "tenant-a", DocumentID: "doc-2", UseContext: true,
	})
	require.NoError(t, err)
	require.False(t, second.Meta.FromCache)
	require.Equal(t, "Answer for doc-2.", second.Answer.Answer)
	require.Equal(t, 2, provider.callCount())
}

func TestQAAgent_ContextBlockBounded(t *testing.T) {
	// Each chunk is ~1500 chars; only the first two fit in the budget.
	big := strings.Repeat("x", 1500)
	searcher := &stubSearcher{results: []*domain.SearchResult{
		{DocumentID: "d", Filename: "a.md", ChunkIndex: 0, Text: big, Score: 0.9},
		{DocumentID: "d", Filename: "a.md", ChunkIndex: 1, Text: big, Score: 0.8},
		{DocumentID: "d", Filename: "a.md", ChunkIndex: 2, Text: big, Score: 0.7},
	}}
	provider := &stubProvider{script: []stubResult{{text: "Answer."}}}
	agent := agents.NewQAAgent(provider, newRouter(), nopSink{}, searcher, testConfig(1))

	result, err := agent.Execute(context.Background(), &domain.AgentContext{
		Question:   "q",
		UseContext: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Answer.Citations, 2)
}
