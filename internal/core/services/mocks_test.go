package services

import (
	"context"
	"fmt"

	"github.com/campuskb/poliq/internal/core/domain"
	"github.com/campuskb/poliq/internal/core/ports/driven"
)

// mockPolicyStore is a hand-written in-memory PolicyStore for tests.
type mockPolicyStore struct {
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
	info      *driven.EmbeddingInfo

	similarResults []domain.RetrievedChunk
	similarSeq     [][]domain.RetrievedChunk // when set, consumed one per call
	similarErr     error
	similarCalls   int

	upsertErr  error
	deletedIDs []string
	resetCalls int
}

func newMockPolicyStore() *mockPolicyStore {
	return &mockPolicyStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
	}
}

func (m *mockPolicyStore) UpsertDocument(_ context.Context, doc domain.Document, chunks []domain.Chunk) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.documents[doc.ID] = doc
	m.chunks[doc.ID] = chunks
	return nil
}

func (m *mockPolicyStore) DeleteDocument(_ context.Context, documentID string) error {
	delete(m.documents, documentID)
	delete(m.chunks, documentID)
	m.deletedIDs = append(m.deletedIDs, documentID)
	return nil
}

func (m *mockPolicyStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func (m *mockPolicyStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	docs := make([]domain.Document, 0, len(m.documents))
	for _, doc := range m.documents {
		docs = append(docs, doc)
	}
	// Sort by title to match the real store's contract.
	for i := 0; i < len(docs); i++ {
		for j := i + 1; j < len(docs); j++ {
			if docs[j].Title < docs[i].Title {
				docs[i], docs[j] = docs[j], docs[i]
			}
		}
	}
	return docs, nil
}

func (m *mockPolicyStore) SimilarChunks(
	_ context.Context, _ []float32, k int, _ float64,
) ([]domain.RetrievedChunk, error) {
	m.similarCalls++
	// The scripted sequence wins while it lasts; similarErr applies to
	// the remaining calls.
	if len(m.similarSeq) > 0 {
		results := m.similarSeq[0]
		m.similarSeq = m.similarSeq[1:]
		if len(results) > k {
			results = results[:k]
		}
		return results, nil
	}
	if m.similarErr != nil {
		return nil, m.similarErr
	}
	results := m.similarResults
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *mockPolicyStore) EmbeddingInfo(_ context.Context) (*driven.EmbeddingInfo, error) {
	if m.info == nil {
		return nil, domain.ErrNotFound
	}
	return m.info, nil
}

func (m *mockPolicyStore) SetEmbeddingInfo(_ context.Context, model string, dimension int) error {
	if m.info != nil {
		if m.info.Model != model {
			return domain.ErrModelMismatch
		}
		if m.info.Dimension != dimension {
			return domain.ErrDimensionMismatch
		}
		return nil
	}
	m.info = &driven.EmbeddingInfo{Model: model, Dimension: dimension}
	return nil
}

func (m *mockPolicyStore) ResetEmbeddingInfo(_ context.Context) error {
	m.info = nil
	m.resetCalls++
	return nil
}

func (m *mockPolicyStore) Close() error { return nil }

// mockEmbedding returns a fixed vector for any input.
type mockEmbedding struct {
	vector     []float32
	embedErr   error
	embedCalls int
	batchCalls int
}

func (m *mockEmbedding) Embed(_ context.Context, _ string) ([]float32, error) {
	m.embedCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector, nil
}

func (m *mockEmbedding) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.vector
	}
	return out, nil
}

func (m *mockEmbedding) Dimensions() int              { return len(m.vector) }
func (m *mockEmbedding) ModelName() string            { return "mock-embedding" }
func (m *mockEmbedding) Ping(_ context.Context) error { return nil }
func (m *mockEmbedding) Close() error                 { return nil }

// mockLLM replays a scripted sequence of chat results.
type mockLLM struct {
	results  []*driven.ChatResult
	err      error
	calls    int
	requests [][]driven.ChatMessage
}

func (m *mockLLM) Chat(
	_ context.Context, messages []driven.ChatMessage, _ []driven.ToolDefinition, _ driven.ChatOptions,
) (*driven.ChatResult, error) {
	m.requests = append(m.requests, messages)
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.calls > len(m.results) {
		return nil, fmt.Errorf("mockLLM: unexpected call %d", m.calls)
	}
	return m.results[m.calls-1], nil
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }
