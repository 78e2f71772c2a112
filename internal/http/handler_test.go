package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/kodama/internal/agents"
	"github.com/davidbz/kodama/internal/batch"
	"github.com/davidbz/kodama/internal/domain"
	kodamahttp "github.com/davidbz/kodama/internal/http"
)

type scriptedAgent struct {
	name   string
	result *domain.AgentResult
	err    error
}

func (a *scriptedAgent) Name() string                          { return a.name }
func (a *scriptedAgent) Validate(_ *domain.AgentContext) error { return nil }
func (a *scriptedAgent) RateLimit() int                        { return 0 }

func (a *scriptedAgent) Execute(_ context.Context, _ *domain.AgentContext) (*domain.AgentResult, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

type cannedSearcher struct {
	results []*domain.SearchResult
	err     error
}

func (s *cannedSearcher) Search(
	_ context.Context,
	_ string,
	_ domain.SearchScope,
	_ int,
	_ float64,
) ([]*domain.SearchResult, error) {
	return s.results, s.err
}

func newTestHandler(t *testing.T, agentList ...domain.Agent) *kodamahttp.Handler {
	t.Helper()

	orch := agents.NewOrchestrator()
	for _, a := range agentList {
		require.NoError(t, orch.Register(a))
	}

	batcher := batch.NewProcessor(func(_ context.Context, _ domain.TaskType, requests []*batch.Request) {
		for _, req := range requests {
			req.Done <- []byte(`{"echo":"` + req.Input + `"}`)
		}
	}, 1, 50*time.Millisecond)

	return kodamahttp.NewHandler(orch, &cannedSearcher{}, batcher)
}

func TestHandleAgent(t *testing.T) {
	handler := newTestHandler(t, &scriptedAgent{
		name:   "summary",
		result: &domain.AgentResult{Agent: "summary", Summary: "Short."},
	})

	t.Run("should execute agent", func(t *testing.T) {
		body := `{"agent":"summary","context":{"document_text":"hello"}}`
		rec := httptest.NewRecorder()
		handler.HandleAgent(rec, httptest.NewRequest(http.MethodPost, "/v1/agents", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code)

		var result domain.AgentResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		require.Equal(t, "Short.", result.Summary)
	})

	t.Run("should reject missing agent name", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.HandleAgent(rec, httptest.NewRequest(http.MethodPost, "/v1/agents", strings.NewReader(`{}`)))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should reject malformed body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.HandleAgent(rec, httptest.NewRequest(http.MethodPost, "/v1/agents", strings.NewReader(`{`)))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should reject wrong method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.HandleAgent(rec, httptest.NewRequest(http.MethodGet, "/v1/agents", nil))
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHandleAgent_ErrorMapping(t *testing.T) {
	t.Run("validation maps to 400", func(t *testing.T) {
		handler := newTestHandler(t, &scriptedAgent{
			name: "summary",
			err:  domain.NewValidationError("document_text", "required"),
		})

		body := `{"agent":"summary","context":{}}`
		rec := httptest.NewRecorder()
		handler.HandleAgent(rec, httptest.NewRequest(http.MethodPost, "/v1/agents", strings.NewReader(body)))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("transient maps to 503", func(t *testing.T) {
		handler := newTestHandler(t, &scriptedAgent{
			name: "summary",
			err:  domain.Transient(errors.New("rate limited")),
		})

		body := `{"agent":"summary","context":{}}`
		rec := httptest.NewRecorder()
		handler.HandleAgent(rec, httptest.NewRequest(http.MethodPost, "/v1/agents", strings.NewReader(body)))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("handle_errors contains failure as result", func(t *testing.T) {
		handler := newTestHandler(t, &scriptedAgent{
			name: "summary",
			err:  errors.New("boom"),
		})

		body := `{"agent":"summary","context":{},"handle_errors":true}`
		rec := httptest.NewRecorder()
		handler.HandleAgent(rec, httptest.NewRequest(http.MethodPost, "/v1/agents", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code)

		var result domain.AgentResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		require.Equal(t, "boom", result.Error)
	})
}

func TestHandleParallel(t *testing.T) {
	handler := newTestHandler(t,
		&scriptedAgent{name: "summary", result: &domain.AgentResult{Agent: "summary", Summary: "s"}},
		&scriptedAgent{name: "sentiment", err: errors.New("down")},
	)

	body := `{"agents":["summary","sentiment"],"context":{"document_text":"x"}}`
	rec := httptest.NewRecorder()
	handler.HandleParallel(rec, httptest.NewRequest(http.MethodPost, "/v1/agents/parallel", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var results map[string]*domain.AgentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 2)
	require.Equal(t, "s", results["summary"].Summary)
	require.Equal(t, "down", results["sentiment"].Error)
}

func TestHandleParallel_RequiresAgents(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.HandleParallel(rec, httptest.NewRequest(http.MethodPost, "/v1/agents/parallel", strings.NewReader(`{"agents":[]}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleProcess_EmptyTextRejected(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.HandleProcess(rec, httptest.NewRequest(http.MethodPost, "/v1/documents/process", strings.NewReader(`{"document_id":"d"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearch(t *testing.T) {
	orch := agents.NewOrchestrator()
	searcher := &cannedSearcher{results: []*domain.SearchResult{
		{DocumentID: "doc-1", Filename: "plan.md", ChunkIndex: 0, Text: "chunk", Score: 0.9},
	}}
	handler := kodamahttp.NewHandler(orch, searcher, batch.NewProcessor(nil, 1, time.Second))

	t.Run("should return ranked results", func(t *testing.T) {
		body := `{"query":"deadline","owner_id":"tenant-1"}`
		rec := httptest.NewRecorder()
		handler.HandleSearch(rec, httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code)

		var payload struct {
			Results []*domain.SearchResult `json:"results"`
			Total   int                    `json:"total"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		require.Equal(t, 1, payload.Total)
		require.Equal(t, "doc-1", payload.Results[0].DocumentID)
	})

	t.Run("should require query", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.HandleSearch(rec, httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"owner_id":"t"}`)))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleBatch(t *testing.T) {
	handler := newTestHandler(t)

	body := `{"task":"summary","input":"hello"}`
	rec := httptest.NewRecorder()
	handler.HandleBatch(rec, httptest.NewRequest(http.MethodPost, "/v1/agents/batch", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"echo":"hello"}`, rec.Body.String())
}

func TestHandleBatch_RequiresTaskAndInput(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.HandleBatch(rec, httptest.NewRequest(http.MethodPost, "/v1/agents/batch", strings.NewReader(`{"task":"summary"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
