package driven

import (
	"context"

	"github.com/campuskb/poliq/internal/core/domain"
)

// PolicyStore persists documents, chunks, and their embeddings, and
// executes similarity queries. Backed by SQLite.
//
// Ingestion and query serving may run concurrently against the same
// store; UpsertDocument is atomic per document, so a reader never
// observes a mix of old and new chunks for one document.
type PolicyStore interface {
	// UpsertDocument replaces a document and its full chunk set in one
	// transaction. Prior chunks and embeddings for the document ID are
	// deleted before the new set is inserted.
	UpsertDocument(ctx context.Context, doc domain.Document, chunks []domain.Chunk) error

	// DeleteDocument removes a document and its chunks. Used when the
	// source file disappears between rebuilds.
	DeleteDocument(ctx context.Context, documentID string) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all indexed documents ordered by title.
	// Reflects the latest committed state only.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// SimilarChunks returns up to k chunks ranked by cosine similarity
	// to the query vector, excluding any below scoreThreshold. Ties
	// break by earlier document ingestion time, then lower ordinal.
	// Returns domain.ErrDimensionMismatch if the query vector does not
	// match the indexed dimension.
	SimilarChunks(ctx context.Context, queryVector []float32, k int, scoreThreshold float64) ([]domain.RetrievedChunk, error)

	// EmbeddingInfo returns the pinned embedding model and dimension,
	// or domain.ErrNotFound before the first ingestion.
	EmbeddingInfo(ctx context.Context) (*EmbeddingInfo, error)

	// SetEmbeddingInfo pins the embedding model and dimension. A value
	// conflicting with an existing pin returns domain.ErrModelMismatch
	// or domain.ErrDimensionMismatch; changing models requires a full
	// rebuild, never a partial mix.
	SetEmbeddingInfo(ctx context.Context, model string, dimension int) error

	// ResetEmbeddingInfo clears the pinned model so a full rebuild can
	// re-pin a different one. Callers must re-ingest every document
	// afterwards; stored vectors from the old model are unusable.
	ResetEmbeddingInfo(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

// EmbeddingInfo records which embedding model produced the stored
// vectors and their shared dimensionality.
type EmbeddingInfo struct {
	// Model is the embedding model identifier.
	Model string

	// Dimension is the vector dimensionality shared by all embeddings.
	Dimension int
}
