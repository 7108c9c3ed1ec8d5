package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskb/poliq/internal/core/domain"
	"github.com/campuskb/poliq/internal/core/ports/driven"
)

func newAssistant(store *mockPolicyStore, llm *mockLLM, opts ...AssistantOption) *AssistantService {
	retrieval := NewRetrievalEngine(store, &mockEmbedding{vector: []float32{1, 0}})
	assembler := NewAnswerAssembler(retrieval, llm)
	return NewAssistantService(store, assembler, opts...)
}

func TestAsk_CatalogListsDocuments(t *testing.T) {
	store := newMockPolicyStore()
	now := time.Now().UTC()
	store.documents["grading"] = domain.Document{ID: "grading", Title: "Grading Policy", IngestedAt: now}
	store.documents["attendance"] = domain.Document{ID: "attendance", Title: "Attendance Policy", IngestedAt: now}
	llm := &mockLLM{}

	assistant := newAssistant(store, llm)

	reply, err := assistant.Ask(context.Background(), "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t,
		"I currently have 2 policy documents in my knowledge base:\n\n"+
			"- Attendance Policy\n- Grading Policy\n\n"+
			"Ask about any of these documents and I'll cite the relevant sections.",
		reply)

	// Catalog answers must not touch the model or the vector index.
	assert.Zero(t, llm.calls)
	assert.Zero(t, store.similarCalls)
}

func TestAsk_CatalogSingularForm(t *testing.T) {
	store := newMockPolicyStore()
	store.documents["one"] = domain.Document{ID: "one", Title: "Only Policy"}

	assistant := newAssistant(store, &mockLLM{})

	reply, err := assistant.Ask(context.Background(), "s1", "what policies do you have")
	require.NoError(t, err)
	assert.Contains(t, reply, "I currently have 1 policy document in my knowledge base:")
}

func TestAsk_CatalogEmptyIndex(t *testing.T) {
	assistant := newAssistant(newMockPolicyStore(), &mockLLM{})

	reply, err := assistant.Ask(context.Background(), "s1", "")
	require.NoError(t, err)
	assert.Contains(t, reply, "(no documents indexed yet)")
}

func TestAsk_SubstantiveGoesThroughAssembler(t *testing.T) {
	store := newMockPolicyStore()
	store.similarResults = []domain.RetrievedChunk{
		{Chunk: domain.Chunk{ID: "a_p1_c0", Page: 1, Content: "Late work loses 10%.", WordCount: 4}, Title: "Grading Policy", Score: 0.9},
	}
	llm := &mockLLM{results: []*driven.ChatResult{{Content: "Late work loses 10% per day."}}}

	assistant := newAssistant(store, llm)

	reply, err := assistant.Ask(context.Background(), "s1", "what is the penalty for late work submissions?")
	require.NoError(t, err)
	assert.Contains(t, reply, "Late work loses 10% per day.")
	assert.Contains(t, reply, "Sources:")
	assert.Equal(t, 1, llm.calls)
}

func TestAsk_HistoryWindowBounded(t *testing.T) {
	store := newMockPolicyStore()
	store.similarResults = []domain.RetrievedChunk{
		{Chunk: domain.Chunk{ID: "a_p1_c0", Page: 1, Content: "text", WordCount: 1}, Title: "A", Score: 0.9},
	}

	// Each answer consumes one scripted result.
	results := make([]*driven.ChatResult, 5)
	for i := range results {
		results[i] = &driven.ChatResult{Content: "reply"}
	}
	llm := &mockLLM{results: results}

	assistant := newAssistant(store, llm, WithHistoryWindow(2))

	ctx := context.Background()
	questions := []string{
		"what does policy A say about first thing?",
		"what does policy A say about second thing?",
		"what does policy A say about third thing?",
		"what does policy A say about fourth thing?",
	}
	for _, q := range questions {
		_, err := assistant.Ask(ctx, "s1", q)
		require.NoError(t, err)
	}

	// The last request should replay only 2 prior turns: system + 2*2
	// history messages + final user message.
	lastReq := llm.requests[len(llm.requests)-1]
	assert.Len(t, lastReq, 6)
	assert.Contains(t, lastReq[1].Content, "second thing")
	assert.Contains(t, lastReq[3].Content, "third thing")
}

func TestReset_ClearsHistory(t *testing.T) {
	store := newMockPolicyStore()
	store.similarResults = []domain.RetrievedChunk{
		{Chunk: domain.Chunk{ID: "a_p1_c0", Page: 1, Content: "text", WordCount: 1}, Title: "A", Score: 0.9},
	}
	llm := &mockLLM{results: []*driven.ChatResult{
		{Content: "first"},
		{Content: "second"},
	}}

	assistant := newAssistant(store, llm)

	ctx := context.Background()
	_, err := assistant.Ask(ctx, "s1", "what does policy A say about the first thing?")
	require.NoError(t, err)

	assistant.Reset("s1")

	_, err = assistant.Ask(ctx, "s1", "what does policy A say about the second thing?")
	require.NoError(t, err)

	// After reset the second request carries no history: system + user.
	lastReq := llm.requests[len(llm.requests)-1]
	assert.Len(t, lastReq, 2)
}

func TestNewSession_UniqueIDs(t *testing.T) {
	assistant := newAssistant(newMockPolicyStore(), &mockLLM{})

	a := assistant.NewSession()
	b := assistant.NewSession()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestAsk_SessionsAreIsolated(t *testing.T) {
	store := newMockPolicyStore()
	store.similarResults = []domain.RetrievedChunk{
		{Chunk: domain.Chunk{ID: "a_p1_c0", Page: 1, Content: "text", WordCount: 1}, Title: "A", Score: 0.9},
	}
	llm := &mockLLM{results: []*driven.ChatResult{
		{Content: "for session one"},
		{Content: "for session two"},
	}}

	assistant := newAssistant(store, llm)

	ctx := context.Background()
	_, err := assistant.Ask(ctx, "s1", "what does policy A say about topic one?")
	require.NoError(t, err)
	_, err = assistant.Ask(ctx, "s2", "what does policy A say about topic two?")
	require.NoError(t, err)

	// The second session's request must not carry the first session's
	// turn.
	lastReq := llm.requests[1]
	assert.Len(t, lastReq, 2)
}
