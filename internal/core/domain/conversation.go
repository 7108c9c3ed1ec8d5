package domain

// Turn is one exchange in a conversation: the user message, the
// assistant reply, and the chunks that grounded the reply.
// Turns are session-scoped and never persisted.
type Turn struct {
	// User is the raw user message.
	User string

	// Assistant is the reply text, including the Sources section.
	Assistant string

	// ChunkIDs are the chunks included in the generation context for
	// this turn. Used for citation integrity checks.
	ChunkIDs []string
}

// Answer is the assembled response to a substantive query.
type Answer struct {
	// Text is the full reply shown to the user, with the Sources
	// section already appended.
	Text string

	// Citations are the unique (title, page) pairs derived from the
	// chunks actually fed into the generation call, sorted by title
	// then page. Never derived from the model's free text.
	Citations []Citation

	// ChunkIDs are the chunks included in the generation context.
	ChunkIDs []string

	// Rounds is how many generation round trips were used.
	Rounds int
}
