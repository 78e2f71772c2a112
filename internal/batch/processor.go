// Package batch groups same-shape requests so provider round-trips can be
// amortized. Batching is an optimization, not a correctness requirement:
// single-item batches work.
package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/davidbz/kodama/internal/domain"
	"github.com/davidbz/kodama/internal/observability"
)

const (
	defaultBatchSize = 8
	defaultMaxWait   = 2 * time.Second

	// lengthBucketChars groups inputs of similar size so batches stay
	// same-shape.
	lengthBucketChars = 2000
)

// Request is one pending unit of work.
type Request struct {
	Task  domain.TaskType
	Input string
	Done  chan []byte
}

// Handler processes one flushed batch as a unit.
type Handler func(ctx context.Context, task domain.TaskType, requests []*Request)

type key struct {
	task   domain.TaskType
	bucket int
}

type pending struct {
	requests []*Request
	timer    *time.Timer
}

// Processor accumulates requests by (task type, input-length bucket) and
// hands a batch off when it reaches batchSize or when its oldest member
// has waited maxWait, whichever comes first.
type Processor struct {
	mu        sync.Mutex
	pending   map[key]*pending
	handler   Handler
	batchSize int
	maxWait   time.Duration
	closed    bool
}

// NewProcessor creates a batch processor delivering to handler.
func NewProcessor(handler Handler, batchSize int, maxWait time.Duration) *Processor {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}

	return &Processor{
		pending:   make(map[key]*pending),
		handler:   handler,
		batchSize: batchSize,
		maxWait:   maxWait,
	}
}

// Submit enqueues a request and returns a channel that receives the
// response when its batch is processed. The channel is closed without a
// value if the batch handler drops the request.
func (p *Processor) Submit(ctx context.Context, task domain.TaskType, input string) (<-chan []byte, error) {
	req := &Request{
		Task:  task,
		Input: input,
		Done:  make(chan []byte, 1),
	}

	k := key{task: task, bucket: len(input) / lengthBucketChars}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.New("batch processor is closed")
	}

	batch, ok := p.pending[k]
	if !ok {
		batch = &pending{}
		// The timer fires for the batch's oldest member.
		batch.timer = time.AfterFunc(p.maxWait, func() {
			p.flush(ctx, k)
		})
		p.pending[k] = batch
	}

	batch.requests = append(batch.requests, req)
	full := len(batch.requests) >= p.batchSize
	p.mu.Unlock()

	if full {
		p.flush(ctx, k)
	}

	return req.Done, nil
}

// Flush forces every pending batch out, regardless of size or age.
func (p *Processor) Flush(ctx context.Context) {
	p.mu.Lock()
	keys := make([]key, 0, len(p.pending))
	for k := range p.pending {
		keys = append(keys, k)
	}
	p.mu.Unlock()

	for _, k := range keys {
		p.flush(ctx, k)
	}
}

// Close flushes remaining work and rejects further submissions.
func (p *Processor) Close(ctx context.Context) {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.Flush(ctx)
}

func (p *Processor) flush(ctx context.Context, k key) {
	// A batch outlives any single submitter, so its flush keeps the
	// context values but never inherits a submitter's cancelation.
	ctx = context.WithoutCancel(ctx)

	p.mu.Lock()
	batch, ok := p.pending[k]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.pending, k)
	batch.timer.Stop()
	requests := batch.requests
	p.mu.Unlock()

	if len(requests) == 0 {
		return
	}

	observability.FromContext(ctx).Debug("flushing batch",
		observability.String("task", string(k.task)),
		observability.Int("bucket", k.bucket),
		observability.Int("size", len(requests)))

	p.handler(ctx, k.task, requests)
}
