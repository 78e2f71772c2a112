package batch_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/kodama/internal/batch"
	"github.com/davidbz/kodama/internal/domain"
)

// recordingHandler answers every request with its own input and records
// flushed batch sizes.
type recordingHandler struct {
	mu      sync.Mutex
	batches [][]string
}

func (h *recordingHandler) handle(_ context.Context, _ domain.TaskType, requests []*batch.Request) {
	inputs := make([]string, 0, len(requests))
	for _, req := range requests {
		inputs = append(inputs, req.Input)
		req.Done <- []byte(req.Input)
	}

	h.mu.Lock()
	h.batches = append(h.batches, inputs)
	h.mu.Unlock()
}

func (h *recordingHandler) flushed() [][]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]string(nil), h.batches...)
}

func receive(t *testing.T, ch <-chan []byte) string {
	t.Helper()
	select {
	case payload := <-ch:
		return string(payload)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for batch response")
		return ""
	}
}

func TestProcessor_FlushesWhenFull(t *testing.T) {
	handler := &recordingHandler{}
	p := batch.NewProcessor(handler.handle, 2, time.Minute)
	ctx := context.Background()

	first, err := p.Submit(ctx, domain.TaskSummary, "one")
	require.NoError(t, err)
	second, err := p.Submit(ctx, domain.TaskSummary, "two")
	require.NoError(t, err)

	require.Equal(t, "one", receive(t, first))
	require.Equal(t, "two", receive(t, second))

	batches := handler.flushed()
	require.Len(t, batches, 1)
	require.Equal(t, []string{"one", "two"}, batches[0])
}

func TestProcessor_FlushesAfterMaxWait(t *testing.T) {
	handler := &recordingHandler{}
	p := batch.NewProcessor(handler.handle, 10, 30*time.Millisecond)
	ctx := context.Background()

	done, err := p.Submit(ctx, domain.TaskSummary, "lonely")
	require.NoError(t, err)

	// A single-item batch still flushes once its wait expires.
	require.Equal(t, "lonely", receive(t, done))
	require.Len(t, handler.flushed(), 1)
}

func TestProcessor_GroupsByTaskAndLength(t *testing.T) {
	handler := &recordingHandler{}
	p := batch.NewProcessor(handler.handle, 2, time.Minute)
	ctx := context.Background()

	short, err := p.Submit(ctx, domain.TaskSummary, "short")
	require.NoError(t, err)
	long, err := p.Submit(ctx, domain.TaskSummary, strings.Repeat("x", 2500))
	require.NoError(t, err)

	// Different length buckets never share a batch, so neither is full
	// yet; a forced flush delivers both separately.
	require.Empty(t, handler.flushed())
	p.Flush(ctx)

	receive(t, short)
	receive(t, long)
	require.Len(t, handler.flushed(), 2)
}

func TestProcessor_DifferentTasksSeparated(t *testing.T) {
	handler := &recordingHandler{}
	p := batch.NewProcessor(handler.handle, 2, time.Minute)
	ctx := context.Background()

	_, err := p.Submit(ctx, domain.TaskSummary, "a")
	require.NoError(t, err)
	_, err = p.Submit(ctx, domain.TaskSentiment, "b")
	require.NoError(t, err)

	require.Empty(t, handler.flushed())
}

func TestProcessor_CloseFlushesAndRejects(t *testing.T) {
	handler := &recordingHandler{}
	p := batch.NewProcessor(handler.handle, 10, time.Minute)
	ctx := context.Background()

	done, err := p.Submit(ctx, domain.TaskSummary, "pending")
	require.NoError(t, err)

	p.Close(ctx)
	require.Equal(t, "pending", receive(t, done))

	_, err = p.Submit(ctx, domain.TaskSummary, "late")
	require.Error(t, err)
}

func TestProcessor_FlushSurvivesSubmitterCancel(t *testing.T) {
	ctxErrs := make(chan error, 2)
	handler := func(ctx context.Context, _ domain.TaskType, requests []*batch.Request) {
		for _, req := range requests {
			ctxErrs <- ctx.Err()
			req.Done <- []byte(req.Input)
		}
	}
	p := batch.NewProcessor(handler, 10, 30*time.Millisecond)

	canceled, cancel := context.WithCancel(context.Background())
	first, err := p.Submit(canceled, domain.TaskSummary, "one")
	require.NoError(t, err)
	second, err := p.Submit(context.Background(), domain.TaskSummary, "two")
	require.NoError(t, err)

	// The first submitter disconnects before the wait window expires; the
	// batch still runs for its live sibling.
	cancel()

	require.Equal(t, "one", receive(t, first))
	require.Equal(t, "two", receive(t, second))
	require.NoError(t, <-ctxErrs)
	require.NoError(t, <-ctxErrs)
}

func TestProcessor_DefaultsApplied(t *testing.T) {
	handler := &recordingHandler{}
	p := batch.NewProcessor(handler.handle, 0, 0)
	ctx := context.Background()

	// Eight submissions hit the default batch size and flush as one.
	channels := make([]<-chan []byte, 0, 8)
	for i := 0; i < 8; i++ {
		ch, err := p.Submit(ctx, domain.TaskSummary, "item")
		require.NoError(t, err)
		channels = append(channels, ch)
	}

	for _, ch := range channels {
		receive(t, ch)
	}
	require.Len(t, handler.flushed(), 1)
}
