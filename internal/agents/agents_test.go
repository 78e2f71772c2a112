package agents_test

import (
	"context"
	"sync"
	"time"

	"github.com/davidbz/kodama/internal/agents"
	"github.com/davidbz/kodama/internal/domain"
	"github.com/davidbz/kodama/internal/router"
)

// stubProvider replays scripted results in order; the last result repeats.
type stubProvider struct {
	mu       sync.Mutex
	script   []stubResult
	calls    int
	requests []*domain.InvokeRequest
}

type stubResult struct {
	text string
	err  error
}

func (p *stubProvider) Invoke(_ context.Context, req *domain.InvokeRequest) (*domain.InvokeResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	idx := p.calls
	if idx >= len(p.script) {
		idx = len(p.script) - 1
	}
	p.calls++

	result := p.script[idx]
	if result.err != nil {
		return nil, result.err
	}

	return &domain.InvokeResponse{
		Text:             result.text,
		Cost:             0.001,
		PromptTokens:     10,
		CompletionTokens: 20,
	}, nil
}

func (p *stubProvider) Embed(_ context.Context, _ string) ([]float64, error) {
	return []float64{1, 0, 0}, nil
}

func (p *stubProvider) Name() string {
	return "stub"
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *stubProvider) lastRequest() *domain.InvokeRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	return p.requests[len(p.requests)-1]
}

// nopSink discards usage events.
type nopSink struct{}

func (nopSink) Record(_ context.Context, _ domain.UsageEvent) {}

// stubSearcher returns canned results or an error.
type stubSearcher struct {
	results []*domain.SearchResult
	err     error
	scopes  []domain.SearchScope
	queries []string
}

func (s *stubSearcher) Search(
	_ context.Context,
	query string,
	scope domain.SearchScope,
	_ int,
	_ float64,
) ([]*domain.SearchResult, error) {
	s.queries = append(s.queries, query)
	s.scopes = append(s.scopes, scope)
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func testConfig(maxRetries int) agents.Config {
	return agents.Config{
		MaxRetries:  maxRetries,
		RateLimit:   60,
		CallTimeout: 5 * time.Second,
	}
}

func newRouter() *router.ModelRouter {
	return router.NewModelRouter(16, time.Minute)
}
