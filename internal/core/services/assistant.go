package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/campuskb/poliq/internal/core/domain"
	"github.com/campuskb/poliq/internal/core/ports/driven"
	"github.com/campuskb/poliq/internal/core/ports/driving"
	"github.com/campuskb/poliq/internal/logger"
)

// Ensure AssistantService implements the interface.
var _ driving.Assistant = (*AssistantService)(nil)

// DefaultHistoryWindow is how many recent turns are replayed to the
// model on each question.
const DefaultHistoryWindow = 6

// session holds the in-memory conversation state for one chat session.
// Nothing is persisted; a session dies with the process.
type session struct {
	turns []domain.Turn
}

// AssistantService answers messages, routing catalog requests to a
// plain document listing and policy questions through retrieval and
// generation.
type AssistantService struct {
	store     driven.PolicyStore
	assembler *AnswerAssembler

	mu            sync.Mutex
	sessions      map[string]*session
	historyWindow int
}

// AssistantOption configures an AssistantService.
type AssistantOption func(*AssistantService)

// WithHistoryWindow sets how many recent turns are replayed per
// question.
func WithHistoryWindow(turns int) AssistantOption {
	return func(s *AssistantService) {
		if turns > 0 {
			s.historyWindow = turns
		}
	}
}

// NewAssistantService creates an assistant.
func NewAssistantService(
	store driven.PolicyStore, assembler *AnswerAssembler, opts ...AssistantOption,
) *AssistantService {
	s := &AssistantService{
		store:         store,
		assembler:     assembler,
		sessions:      make(map[string]*session),
		historyWindow: DefaultHistoryWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSession allocates a fresh session ID.
func (s *AssistantService) NewSession() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &session{}
	s.mu.Unlock()
	return id
}

// Ask answers one message within a session. Catalog-intent messages
// are answered from the document list alone and never cost an
// embedding or generation call.
func (s *AssistantService) Ask(ctx context.Context, sessionID, message string) (string, error) {
	message = strings.TrimSpace(message)

	if ClassifyIntent(message) == domain.IntentCatalog {
		logger.Debug("Catalog intent for session %s", sessionID)
		reply, err := s.catalogResponse(ctx)
		if err != nil {
			return "", err
		}
		s.recordTurn(sessionID, domain.Turn{User: message, Assistant: reply})
		return reply, nil
	}

	history := s.recentTurns(sessionID)
	answer, err := s.assembler.Answer(ctx, message, history)
	if err != nil {
		return "", err
	}

	s.recordTurn(sessionID, domain.Turn{
		User:      message,
		Assistant: answer.Text,
		ChunkIDs:  answer.ChunkIDs,
	})
	return answer.Text, nil
}

// Reset discards a session's history.
func (s *AssistantService) Reset(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// catalogResponse lists the indexed documents.
func (s *AssistantService) catalogResponse(ctx context.Context) (string, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return "", fmt.Errorf("listing documents: %w", err)
	}

	var bullets strings.Builder
	for i, doc := range docs {
		if i > 0 {
			bullets.WriteString("\n")
		}
		bullets.WriteString("- " + doc.Title)
	}
	list := bullets.String()
	if list == "" {
		list = "(no documents indexed yet)"
	}

	plural := "s"
	if len(docs) == 1 {
		plural = ""
	}
	return fmt.Sprintf(
		"I currently have %d policy document%s in my knowledge base:\n\n%s\n\n"+
			"Ask about any of these documents and I'll cite the relevant sections.",
		len(docs), plural, list,
	), nil
}

// recentTurns returns the tail of the session history within the
// configured window.
func (s *AssistantService) recentTurns(sessionID string) []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	turns := sess.turns
	if len(turns) > s.historyWindow {
		turns = turns[len(turns)-s.historyWindow:]
	}
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out
}

// recordTurn appends a completed turn, creating the session on first
// use.
func (s *AssistantService) recordTurn(sessionID string, turn domain.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{}
		s.sessions[sessionID] = sess
	}
	sess.turns = append(sess.turns, turn)
}
