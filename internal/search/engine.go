// Package search implements embedding-based similarity search over
// precomputed document chunks, with an optional hybrid keyword blend.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/davidbz/kodama/internal/domain"
	"github.com/davidbz/kodama/internal/observability"
)

// Options tune hybrid scoring. The blend is a plain weighted sum:
// semantic_weight*semantic + keyword_weight*keyword. Weights are NOT
// normalized; if both are zero every result scores 0 and is discarded by
// any positive threshold.
type Options struct {
	Hybrid         bool
	SemanticWeight float64
	KeywordWeight  float64
}

// Engine ranks document chunks against a query by cosine similarity,
// embedding the query through the shared embedding cache.
type Engine struct {
	embedder domain.EmbeddingGenerator
	store    domain.ChunkStore
	opts     Options
}

// NewEngine creates a similarity search engine.
func NewEngine(embedder domain.EmbeddingGenerator, store domain.ChunkStore, opts Options) *Engine {
	return &Engine{
		embedder: embedder,
		store:    store,
		opts:     opts,
	}
}

// Search embeds the query, scores every chunk in scope, discards results
// below threshold, and returns up to limit results sorted by descending
// score. Ties keep original chunk order, so identical inputs rank
// identically across calls. An embedding failure propagates: a failed
// query embedding makes ranking meaningless.
func (e *Engine) Search(
	ctx context.Context,
	query string,
	scope domain.SearchScope,
	limit int,
	threshold float64,
) ([]*domain.SearchResult, error) {
	if query == "" {
		return nil, errors.New("query cannot be empty")
	}

	logger := observability.FromContext(ctx)

	queryVec, err := e.embedder.Generate(ctx, query)
	if err != nil {
		logger.Error("query embedding failed", observability.Error(err))
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	chunks, err := e.store.Chunks(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	var queryTerms map[string]struct{}
	if e.opts.Hybrid {
		queryTerms = termSet(query)
	}

	results := make([]*domain.SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		score := CosineSimilarity(queryVec, chunk.Embedding)
		if e.opts.Hybrid {
			keyword := keywordOverlap(queryTerms, chunk.Text)
			score = e.opts.SemanticWeight*score + e.opts.KeywordWeight*keyword
		}

		if score < threshold {
			continue
		}

		results = append(results, &domain.SearchResult{
			DocumentID: chunk.DocumentID,
			Filename:   chunk.Filename,
			ChunkIndex: chunk.ChunkIndex,
			Text:       chunk.Text,
			Score:      score,
		})
	}

	// Stable sort keeps original chunk order on ties for deterministic
	// rankings.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	logger.Debug("similarity search completed",
		observability.Int("candidates", len(chunks)),
		observability.Int("matches", len(results)),
		observability.Float64("threshold", threshold))

	return results, nil
}

// CosineSimilarity computes dot(a,b) / (|a|*|b|). Mismatched dimensions or
// a zero-norm vector yield 0, never a division error.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// keywordOverlap scores what fraction of the query's terms appear in the
// chunk text.
func keywordOverlap(queryTerms map[string]struct{}, text string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}

	chunkTerms := termSet(text)
	matched := 0
	for term := range queryTerms {
		if _, ok := chunkTerms[term]; ok {
			matched++
		}
	}

	return float64(matched) / float64(len(queryTerms))
}

func termSet(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(text)) {
		term := strings.Trim(field, ".,;:!?()[]\"'")
		if term != "" {
			terms[term] = struct{}{}
		}
	}
	return terms
}
