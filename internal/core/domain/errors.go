package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrParseFailure indicates a page or document could not be read.
	// Ingestion skips the page and continues the document.
	ErrParseFailure = errors.New("parse failure")

	// ErrEmbeddingUnavailable indicates the embedding service failed
	// after exhausting retries. The affected batch is aborted; it is
	// never silently swallowed into an empty result.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the generation service is not
	// configured or unreachable.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrStoreUnavailable indicates a store connection or transaction
	// failure. At query time this surfaces as a generic service
	// unavailable message; during ingestion the in-flight document's
	// transaction rolls back, leaving the committed version intact.
	ErrStoreUnavailable = errors.New("policy store unavailable")

	// ErrDimensionMismatch indicates a query or chunk vector does not
	// match the indexed embedding dimension. This is fatal: it means
	// the embedding model changed and a full rebuild is required.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrModelMismatch indicates an ingestion run attempted to mix
	// embeddings from a different model into an existing index.
	ErrModelMismatch = errors.New("embedding model mismatch")

	// ErrNoEvidence is the defined outcome when retrieval finds no
	// chunk above the similarity threshold. It is user-visible as an
	// "insufficient information" response, not a failure.
	ErrNoEvidence = errors.New("no supporting policy found")

	// ErrRateLimited indicates an external API rate limit was hit.
	// Treated as retryable by the embedding gateway.
	ErrRateLimited = errors.New("rate limited")
)
