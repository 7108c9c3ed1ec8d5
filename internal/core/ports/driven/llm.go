package driven

import (
	"context"
	"encoding/json"
)

// LLMService provides the external generation capability. It is treated
// as a tool-calling agent: a response may carry tool-call requests that
// the caller satisfies before the next round.
type LLMService interface {
	// Chat conducts one request/response round. When tools are
	// registered, the result may contain tool calls instead of (or in
	// addition to) assistant text.
	Chat(ctx context.Context, messages []ChatMessage, tools []ToolDefinition, opts ChatOptions) (*ChatResult, error)

	// ModelName returns the generation model identifier.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", "assistant", or "tool".
	Role string

	// Content is the message text.
	Content string

	// ToolCalls carries tool requests on assistant messages that are
	// echoed back into the conversation.
	ToolCalls []ToolCall

	// ToolCallID links a "tool" role message to the call it answers.
	ToolCallID string
}

// ToolDefinition registers a callable tool with the model.
type ToolDefinition struct {
	// Name is the tool identifier the model uses to call it.
	Name string

	// Description tells the model when to use the tool.
	Description string

	// Parameters is the JSON Schema of the tool's arguments.
	Parameters json.RawMessage
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	// ID is the provider-assigned call identifier.
	ID string

	// Name is the requested tool.
	Name string

	// Arguments is the JSON-encoded argument object.
	Arguments json.RawMessage
}

// ChatResult is the outcome of one chat round.
type ChatResult struct {
	// Content is the assistant text, empty when the model only
	// requested tool calls.
	Content string

	// ToolCalls are the tool invocations to satisfy before the next
	// round. Empty when the answer is final.
	ToolCalls []ToolCall
}

// ChatOptions configures generation behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}
