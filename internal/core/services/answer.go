package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/campuskb/poliq/internal/core/domain"
	"github.com/campuskb/poliq/internal/core/ports/driven"
	"github.com/campuskb/poliq/internal/logger"
)

// Default assembly parameters.
const (
	DefaultContextWordBudget = 1200
	DefaultMaxToolRounds     = 3
)

// NoEvidenceResponse is returned verbatim when retrieval finds nothing
// above the score threshold. No generation call is made in that case.
const NoEvidenceResponse = "I couldn't find anything in the indexed policy documents that answers that. " +
	"Try rephrasing the question, or ask me what documents I have."

const systemPrompt = "You are a school policy assistant. Answer strictly from the policy excerpts " +
	"provided in the conversation. If you need more material, call the retrieve_policy_context tool " +
	"with a focused question. Cite policies by their exact title and page number. If the excerpts do " +
	"not contain the answer, say you do not know. Do not add your own sources section; it is appended " +
	"for you."

// retrieveToolName is the tool the model may call to pull more passages
// mid-answer.
const retrieveToolName = "retrieve_policy_context"

var retrieveToolParams = json.RawMessage(`{
	"type": "object",
	"properties": {
		"question": {
			"type": "string",
			"description": "A focused question to look up in the policy index."
		}
	},
	"required": ["question"]
}`)

// AnswerAssembler turns retrieved chunks into a grounded, cited answer.
type AnswerAssembler struct {
	retrieval  *RetrievalEngine
	llm        driven.LLMService
	wordBudget int
	maxRounds  int
}

// AssemblerOption configures an AnswerAssembler.
type AssemblerOption func(*AnswerAssembler)

// WithContextWordBudget caps the total words of chunk content sent to
// the model across all rounds.
func WithContextWordBudget(words int) AssemblerOption {
	return func(a *AnswerAssembler) {
		if words > 0 {
			a.wordBudget = words
		}
	}
}

// WithMaxToolRounds caps how many times the model may call the
// retrieval tool for one answer.
func WithMaxToolRounds(rounds int) AssemblerOption {
	return func(a *AnswerAssembler) {
		if rounds > 0 {
			a.maxRounds = rounds
		}
	}
}

// NewAnswerAssembler creates an answer assembler.
func NewAnswerAssembler(retrieval *RetrievalEngine, llm driven.LLMService, opts ...AssemblerOption) *AnswerAssembler {
	a := &AnswerAssembler{
		retrieval:  retrieval,
		llm:        llm,
		wordBudget: DefaultContextWordBudget,
		maxRounds:  DefaultMaxToolRounds,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer produces a grounded answer to the question, given recent
// conversation turns for context. The cited sources are exactly the
// (title, page) pairs of chunks actually sent to the model.
func (a *AnswerAssembler) Answer(
	ctx context.Context, question string, history []domain.Turn,
) (*domain.Answer, error) {
	chunks, err := a.retrieval.Retrieve(ctx, question)
	if err != nil {
		if errors.Is(err, domain.ErrNoEvidence) {
			logger.Debug("No evidence for %q, returning fixed response", question)
			return &domain.Answer{Text: NoEvidenceResponse}, nil
		}
		return nil, err
	}

	budget := a.wordBudget
	sent, used := selectWithinBudget(chunks, budget)
	budget -= used

	messages := a.buildMessages(question, history, sent)
	tools := []driven.ToolDefinition{{
		Name:        retrieveToolName,
		Description: "Look up the most relevant policy passages for the given question.",
		Parameters:  retrieveToolParams,
	}}

	seen := make(map[string]struct{}, len(sent))
	for _, c := range sent {
		seen[c.Chunk.ID] = struct{}{}
	}

	var result *driven.ChatResult
	rounds := 0
	for {
		// Past the round cap the model must answer from what it has.
		offered := tools
		if rounds >= a.maxRounds {
			offered = nil
		}

		result, err = a.llm.Chat(ctx, messages, offered, driven.ChatOptions{})
		if err != nil {
			return nil, fmt.Errorf("generating answer: %w", err)
		}
		if len(result.ToolCalls) == 0 || offered == nil {
			break
		}

		rounds++
		messages = append(messages, driven.ChatMessage{
			Role:      "assistant",
			Content:   result.Content,
			ToolCalls: result.ToolCalls,
		})

		for _, call := range result.ToolCalls {
			reply, extra, err := a.handleToolCall(ctx, call, seen, &budget)
			if err != nil {
				return nil, err
			}
			sent = append(sent, extra...)
			messages = append(messages, driven.ChatMessage{
				Role:       "tool",
				ToolCallID: call.ID,
				Content:    reply,
			})
		}
	}

	text := strings.TrimSpace(result.Content)
	citations := citationsFor(sent)
	if section := sourcesSection(citations); section != "" {
		text += "\n\n" + section
	}

	answer := &domain.Answer{
		Text:      text,
		Citations: citations,
		Rounds:    rounds,
	}
	for _, c := range sent {
		answer.ChunkIDs = append(answer.ChunkIDs, c.Chunk.ID)
	}
	return answer, nil
}

// handleToolCall satisfies one retrieve_policy_context call, updating
// the dedupe set and remaining word budget. Malformed calls are
// reported to the model as content; an infrastructure failure during
// retrieval aborts the answer so the caller sees the typed error.
func (a *AnswerAssembler) handleToolCall(
	ctx context.Context, call driven.ToolCall, seen map[string]struct{}, budget *int,
) (string, []domain.RetrievedChunk, error) {
	if call.Name != retrieveToolName {
		return fmt.Sprintf(`{"error": "unknown tool %q"}`, call.Name), nil, nil
	}

	var args struct {
		Question string `json:"question"`
	}
	if err := json.Unmarshal(call.Arguments, &args); err != nil || strings.TrimSpace(args.Question) == "" {
		return `{"error": "missing question argument"}`, nil, nil
	}

	chunks, err := a.retrieval.Retrieve(ctx, args.Question)
	if err != nil {
		if errors.Is(err, domain.ErrNoEvidence) {
			return `{"chunks": []}`, nil, nil
		}
		return "", nil, fmt.Errorf("tool retrieval: %w", err)
	}

	// Keep only chunks not already sent and still within budget.
	var fresh []domain.RetrievedChunk
	for _, c := range chunks {
		if _, ok := seen[c.Chunk.ID]; ok {
			continue
		}
		words := c.Chunk.WordCount
		if words == 0 {
			words = len(strings.Fields(c.Chunk.Content))
		}
		if words > *budget {
			continue
		}
		*budget -= words
		seen[c.Chunk.ID] = struct{}{}
		fresh = append(fresh, c)
	}

	type payloadChunk struct {
		Title   string `json:"title"`
		Page    int    `json:"page_number"`
		Excerpt string `json:"excerpt"`
	}
	payload := struct {
		Chunks []payloadChunk `json:"chunks"`
	}{Chunks: make([]payloadChunk, 0, len(fresh))}
	for _, c := range fresh {
		payload.Chunks = append(payload.Chunks, payloadChunk{
			Title:   c.Title,
			Page:    c.Chunk.Page,
			Excerpt: c.Chunk.Content,
		})
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return `{"error": "encoding failed"}`, nil, nil
	}
	return string(encoded), fresh, nil
}

// buildMessages lays out the conversation: system prompt, recent
// turns, then the question with its supporting excerpts.
func (a *AnswerAssembler) buildMessages(
	question string, history []domain.Turn, chunks []domain.RetrievedChunk,
) []driven.ChatMessage {
	messages := []driven.ChatMessage{{Role: "system", Content: systemPrompt}}

	for _, turn := range history {
		messages = append(messages,
			driven.ChatMessage{Role: "user", Content: turn.User},
			driven.ChatMessage{Role: "assistant", Content: turn.Assistant},
		)
	}

	var sb strings.Builder
	sb.WriteString("Policy excerpts:\n\n")
	for _, c := range chunks {
		fmt.Fprintf(&sb, "[%s, page %d]\n%s\n\n", c.Title, c.Chunk.Page, c.Chunk.Content)
	}
	sb.WriteString("Question: ")
	sb.WriteString(question)

	return append(messages, driven.ChatMessage{Role: "user", Content: sb.String()})
}

// selectWithinBudget keeps chunks in rank order until the word budget
// is exhausted. Chunks that would overflow are dropped silently.
func selectWithinBudget(chunks []domain.RetrievedChunk, budget int) ([]domain.RetrievedChunk, int) {
	var selected []domain.RetrievedChunk
	used := 0
	for _, c := range chunks {
		words := c.Chunk.WordCount
		if words == 0 {
			words = len(strings.Fields(c.Chunk.Content))
		}
		if used+words > budget {
			continue
		}
		used += words
		selected = append(selected, c)
	}
	return selected, used
}

// citationsFor collapses chunks to unique (title, page) pairs, sorted
// by title then page.
func citationsFor(chunks []domain.RetrievedChunk) []domain.Citation {
	type key struct {
		title string
		page  int
	}
	seen := make(map[key]struct{}, len(chunks))
	var citations []domain.Citation
	for _, c := range chunks {
		k := key{title: c.Title, page: c.Chunk.Page}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		citations = append(citations, domain.Citation{Title: c.Title, Page: c.Chunk.Page})
	}

	sort.Slice(citations, func(i, j int) bool {
		if citations[i].Title != citations[j].Title {
			return citations[i].Title < citations[j].Title
		}
		return citations[i].Page < citations[j].Page
	})
	return citations
}

// sourcesSection renders the citation list appended to every grounded
// answer.
func sourcesSection(citations []domain.Citation) string {
	if len(citations) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Sources:")
	for _, c := range citations {
		fmt.Fprintf(&sb, "\n- %s, page %d", c.Title, c.Page)
	}
	return sb.String()
}
