// Package memory provides an in-memory chunk store for tests and
// single-node deployments.
package memory

import (
	"context"
	"sync"

	"github.com/davidbz/kodama/internal/domain"
)

// ChunkStore implements domain.ChunkStore with an RWMutex-guarded map.
type ChunkStore struct {
	mu     sync.RWMutex
	byDoc  map[string][]domain.Chunk
	owners map[string][]string
}

// NewChunkStore creates an empty in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		byDoc:  make(map[string][]domain.Chunk),
		owners: make(map[string][]string),
	}
}

// Add stores chunks for a document under an owner. Intended for fixtures
// and ingestion in single-node setups.
func (s *ChunkStore) Add(ownerID, docID string, chunks ...domain.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byDoc[docID]; !exists {
		s.owners[ownerID] = append(s.owners[ownerID], docID)
	}
	s.byDoc[docID] = append(s.byDoc[docID], chunks...)
}

// Chunks returns every chunk visible within the scope.
func (s *ChunkStore) Chunks(_ context.Context, scope domain.SearchScope) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if scope.DocumentID != "" {
		return append([]domain.Chunk(nil), s.byDoc[scope.DocumentID]...), nil
	}

	var chunks []domain.Chunk
	for _, docID := range s.owners[scope.OwnerID] {
		chunks = append(chunks, s.byDoc[docID]...)
	}

	return chunks, nil
}
