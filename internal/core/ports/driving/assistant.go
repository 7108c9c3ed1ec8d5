package driving

import "context"

// Assistant answers user messages, routing between the catalog path
// and grounded retrieval-augmented answering.
type Assistant interface {
	// NewSession allocates a fresh conversation session and returns its
	// ID.
	NewSession() string

	// Ask processes one user message within a session and returns the
	// assistant reply. Catalog-style messages are answered from the
	// document listing; substantive questions run retrieval and
	// grounded generation with citations.
	Ask(ctx context.Context, sessionID, message string) (string, error)

	// Reset clears the conversation history for a session.
	Reset(sessionID string)
}
