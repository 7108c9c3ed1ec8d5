package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations batch requests up to a provider-imposed limit and
// retry transient failures with backoff. After exhausting retries they
// fail with an error wrapping domain.ErrEmbeddingUnavailable, which
// callers must surface rather than swallow.
type EmbeddingService interface {
	// Embed generates a vector embedding for a single text,
	// typically a user query.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving
	// input order. More efficient than calling Embed in a loop.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 1536, 3072).
	// Determined by the model and enforced by the PolicyStore.
	Dimensions() int

	// ModelName returns the embedding model identifier. One gateway
	// instance uses exactly one model.
	ModelName() string

	// Ping validates the service is reachable without running inference.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
