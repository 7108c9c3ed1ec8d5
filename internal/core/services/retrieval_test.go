package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskb/poliq/internal/core/domain"
)

func retrievedChunk(id, title string, score float64) domain.RetrievedChunk {
	return domain.RetrievedChunk{
		Chunk: domain.Chunk{ID: id, Content: "text for " + id},
		Title: title,
		Score: score,
	}
}

func TestRetrieve_ReturnsRankedChunks(t *testing.T) {
	store := newMockPolicyStore()
	store.similarResults = []domain.RetrievedChunk{
		retrievedChunk("doc_p1_c0", "Attendance Policy", 0.9),
		retrievedChunk("doc_p2_c1", "Attendance Policy", 0.7),
	}
	embedding := &mockEmbedding{vector: []float32{1, 0}}

	engine := NewRetrievalEngine(store, embedding)

	chunks, err := engine.Retrieve(context.Background(), "what is the attendance policy?")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "doc_p1_c0", chunks[0].Chunk.ID)
	assert.Equal(t, 1, embedding.embedCalls)
	assert.Equal(t, 1, store.similarCalls)
}

func TestRetrieve_EmptyQuestion(t *testing.T) {
	engine := NewRetrievalEngine(newMockPolicyStore(), &mockEmbedding{vector: []float32{1}})

	_, err := engine.Retrieve(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrieve_NoEvidence(t *testing.T) {
	store := newMockPolicyStore()
	embedding := &mockEmbedding{vector: []float32{1, 0}}

	engine := NewRetrievalEngine(store, embedding)

	_, err := engine.Retrieve(context.Background(), "what is the refund policy?")
	assert.ErrorIs(t, err, domain.ErrNoEvidence)
}

func TestRetrieve_EmbeddingFailure(t *testing.T) {
	store := newMockPolicyStore()
	embedding := &mockEmbedding{embedErr: domain.ErrEmbeddingUnavailable}

	engine := NewRetrievalEngine(store, embedding)

	_, err := engine.Retrieve(context.Background(), "what is the refund policy?")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Zero(t, store.similarCalls)
}

func TestRetrieve_DedupesRepeatedChunkIDs(t *testing.T) {
	store := newMockPolicyStore()
	store.similarResults = []domain.RetrievedChunk{
		retrievedChunk("doc_p1_c0", "Grading Policy", 0.9),
		retrievedChunk("doc_p1_c0", "Grading Policy", 0.9),
		retrievedChunk("doc_p1_c1", "Grading Policy", 0.8),
	}
	embedding := &mockEmbedding{vector: []float32{1, 0}}

	engine := NewRetrievalEngine(store, embedding)

	chunks, err := engine.Retrieve(context.Background(), "how are grades weighted?")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "doc_p1_c0", chunks[0].Chunk.ID)
	assert.Equal(t, "doc_p1_c1", chunks[1].Chunk.ID)
}

func TestRetrieve_TopKOption(t *testing.T) {
	store := newMockPolicyStore()
	store.similarResults = []domain.RetrievedChunk{
		retrievedChunk("a_p1_c0", "A", 0.9),
		retrievedChunk("a_p1_c1", "A", 0.8),
		retrievedChunk("a_p1_c2", "A", 0.7),
	}
	embedding := &mockEmbedding{vector: []float32{1, 0}}

	engine := NewRetrievalEngine(store, embedding, WithTopK(2))

	chunks, err := engine.Retrieve(context.Background(), "what does the handbook say about appeals?")
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}
