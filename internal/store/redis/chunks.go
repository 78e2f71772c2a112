// Package redis reads precomputed document chunks from Redis. The engine
// only reads chunk rows; the ingestion collaborator writes them.
package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/davidbz/kodama/internal/domain"
	"github.com/davidbz/kodama/internal/observability"
)

const bytesPerFloat32 = 4

// Key layout, written by the ingestion collaborator:
//
//	owner:<owner_id>:docs        SET of document ids
//	doc:<doc_id>:chunks          SET of chunk hash keys
//	chunk:<doc_id>:<index>       HASH {document_id, filename, chunk_index, text, embedding}
//
// embedding is little-endian float32 bytes.

// ChunkStore implements domain.ChunkStore over Redis hashes.
type ChunkStore struct {
	client *redis.Client
}

// NewChunkStore creates a Redis-backed chunk store.
func NewChunkStore(client *redis.Client) *ChunkStore {
	return &ChunkStore{
		client: client,
	}
}

// Chunks returns every chunk visible within the scope: one document when
// scope.DocumentID is set, otherwise all documents owned by
// scope.OwnerID.
func (s *ChunkStore) Chunks(ctx context.Context, scope domain.SearchScope) ([]domain.Chunk, error) {
	logger := observability.FromContext(ctx)

	docIDs, err := s.resolveDocuments(ctx, scope)
	if err != nil {
		return nil, err
	}

	var chunks []domain.Chunk
	for _, docID := range docIDs {
		keys, keysErr := s.client.SMembers(ctx, fmt.Sprintf("doc:%s:chunks", docID)).Result()
		if keysErr != nil {
			return nil, fmt.Errorf("failed to list chunks for document %s: %w", docID, keysErr)
		}

		for _, key := range keys {
			fields, getErr := s.client.HGetAll(ctx, key).Result()
			if getErr != nil {
				return nil, fmt.Errorf("failed to read chunk %s: %w", key, getErr)
			}
			if len(fields) == 0 {
				// Expired or deleted behind the set; skip.
				continue
			}

			chunk, parseErr := parseChunk(fields)
			if parseErr != nil {
				logger.Warn("skipping malformed chunk row",
					observability.String("key", key),
					observability.Error(parseErr))
				continue
			}

			chunks = append(chunks, chunk)
		}
	}

	logger.Debug("loaded chunks from redis",
		observability.Int("documents", len(docIDs)),
		observability.Int("chunks", len(chunks)))

	return chunks, nil
}

func (s *ChunkStore) resolveDocuments(ctx context.Context, scope domain.SearchScope) ([]string, error) {
	if scope.DocumentID != "" {
		return []string{scope.DocumentID}, nil
	}

	if scope.OwnerID == "" {
		return nil, fmt.Errorf("search scope requires a document id or owner id")
	}

	docIDs, err := s.client.SMembers(ctx, fmt.Sprintf("owner:%s:docs", scope.OwnerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents for owner %s: %w", scope.OwnerID, err)
	}

	return docIDs, nil
}

func parseChunk(fields map[string]string) (domain.Chunk, error) {
	index, err := strconv.Atoi(fields["chunk_index"])
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("invalid chunk_index: %w", err)
	}

	embedding, err := bytesToFloats([]byte(fields["embedding"]))
	if err != nil {
		return domain.Chunk{}, err
	}

	return domain.Chunk{
		DocumentID: fields["document_id"],
		Filename:   fields["filename"],
		ChunkIndex: index,
		Text:       fields["text"],
		Embedding:  embedding,
	}, nil
}

// bytesToFloats decodes little-endian float32 bytes into a float64 vector.
func bytesToFloats(data []byte) ([]float64, error) {
	if len(data)%bytesPerFloat32 != 0 {
		return nil, fmt.Errorf("embedding length %d is not a multiple of %d", len(data), bytesPerFloat32)
	}

	vector := make([]float64, len(data)/bytesPerFloat32)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(data[i*bytesPerFloat32:])
		vector[i] = float64(math.Float32frombits(bits))
	}

	return vector, nil
}
