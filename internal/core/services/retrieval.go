package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/campuskb/poliq/internal/core/domain"
	"github.com/campuskb/poliq/internal/core/ports/driven"
	"github.com/campuskb/poliq/internal/logger"
)

// Default retrieval parameters.
const (
	DefaultTopK           = 4
	DefaultScoreThreshold = 0.25
)

// RetrievalEngine embeds a question and finds the best-matching chunks
// in the policy store.
type RetrievalEngine struct {
	store     driven.PolicyStore
	embedding driven.EmbeddingService
	topK      int
	threshold float64
}

// RetrievalOption configures a RetrievalEngine.
type RetrievalOption func(*RetrievalEngine)

// WithTopK sets how many chunks a retrieval returns at most.
func WithTopK(k int) RetrievalOption {
	return func(e *RetrievalEngine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithScoreThreshold sets the minimum cosine similarity for a chunk to
// count as evidence.
func WithScoreThreshold(threshold float64) RetrievalOption {
	return func(e *RetrievalEngine) {
		e.threshold = threshold
	}
}

// NewRetrievalEngine creates a retrieval engine with the given
// dependencies.
func NewRetrievalEngine(
	store driven.PolicyStore,
	embedding driven.EmbeddingService,
	opts ...RetrievalOption,
) *RetrievalEngine {
	e := &RetrievalEngine{
		store:     store,
		embedding: embedding,
		topK:      DefaultTopK,
		threshold: DefaultScoreThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retrieve embeds the question and returns the top-ranked chunks above
// the score threshold. No qualifying chunks is a defined outcome and
// surfaces as domain.ErrNoEvidence.
func (e *RetrievalEngine) Retrieve(ctx context.Context, question string) ([]domain.RetrievedChunk, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	vector, err := e.embedding.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	chunks, err := e.store.SimilarChunks(ctx, vector, e.topK, e.threshold)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}

	chunks = dedupeChunks(chunks)
	logger.Debug("Retrieved %d chunk(s) for question %q", len(chunks), question)

	if len(chunks) == 0 {
		return nil, domain.ErrNoEvidence
	}
	return chunks, nil
}

// dedupeChunks drops repeated chunk IDs, keeping the first (highest
// ranked) occurrence.
func dedupeChunks(chunks []domain.RetrievedChunk) []domain.RetrievedChunk {
	seen := make(map[string]struct{}, len(chunks))
	out := chunks[:0]
	for _, c := range chunks {
		if _, ok := seen[c.Chunk.ID]; ok {
			continue
		}
		seen[c.Chunk.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}
