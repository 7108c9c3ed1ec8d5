// Package sqlite implements the PolicyStore port on SQLite.
//
// Vectors are stored as little-endian float32 blobs alongside their
// chunks; similarity queries run a cosine scan over the stored vectors.
// Per-document replacement happens in a single transaction, so under
// WAL a concurrent reader sees either the old or the new chunk set,
// never a mix.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/campuskb/poliq/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/campuskb/poliq/internal/core/domain"
	"github.com/campuskb/poliq/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.PolicyStore = (*Store)(nil)

// Store is the SQLite-backed policy store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.poliq/data/policies.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".poliq", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "policies.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", domain.ErrStoreUnavailable, err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// UpsertDocument replaces a document and its chunks atomically.
// Prior chunks for the document ID are deleted inside the same
// transaction that inserts the new set.
func (s *Store) UpsertDocument(ctx context.Context, doc domain.Document, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, title, path, content_hash, page_count, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			path = excluded.path,
			content_hash = excluded.content_hash,
			page_count = excluded.page_count,
			ingested_at = excluded.ingested_at
	`, doc.ID, doc.Title, doc.Path, doc.ContentHash, doc.PageCount, doc.IngestedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", doc.ID); err != nil {
		return fmt.Errorf("deleting prior chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, page, ordinal, content, word_count, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		embeddingBlob := float32SliceToBytes(chunk.Embedding)
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.Page,
			chunk.Ordinal, chunk.Content, chunk.WordCount, embeddingBlob); err != nil {
			return fmt.Errorf("saving chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteDocument removes a document; its chunks cascade.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, path, content_hash, page_count, ingested_at
		FROM documents WHERE id = ?
	`, id)

	var doc domain.Document
	if err := row.Scan(&doc.ID, &doc.Title, &doc.Path, &doc.ContentHash,
		&doc.PageCount, &doc.IngestedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	return &doc, nil
}

// ListDocuments returns all indexed documents ordered by title.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, path, content_hash, page_count, ingested_at
		FROM documents ORDER BY title
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying documents: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Path, &doc.ContentHash,
			&doc.PageCount, &doc.IngestedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// SimilarChunks returns up to k chunks ranked by cosine similarity to
// the query vector, excluding any below scoreThreshold. Ties break by
// earlier document ingestion time, then lower ordinal, then chunk ID,
// so results are reproducible.
func (s *Store) SimilarChunks(
	ctx context.Context, queryVector []float32, k int, scoreThreshold float64,
) ([]domain.RetrievedChunk, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}
	if k <= 0 {
		return []domain.RetrievedChunk{}, nil
	}

	info, err := s.EmbeddingInfo(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Nothing indexed yet
			return []domain.RetrievedChunk{}, nil
		}
		return nil, err
	}
	if len(queryVector) != info.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(queryVector), info.Dimension)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.page, c.ordinal, c.content, c.word_count, c.embedding,
		       d.title, d.ingested_at
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying chunks: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	queryNorm := vectorNorm(queryVector)

	type scored struct {
		chunk      domain.RetrievedChunk
		ingestedAt int64
	}
	var candidates []scored

	for rows.Next() {
		var chunk domain.Chunk
		var title string
		var ingestedAt sql.NullTime
		var embeddingBlob []byte

		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Page, &chunk.Ordinal,
			&chunk.Content, &chunk.WordCount, &embeddingBlob, &title, &ingestedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
		if len(chunk.Embedding) != info.Dimension {
			return nil, fmt.Errorf("%w: chunk %s has %d dimensions, index has %d",
				domain.ErrDimensionMismatch, chunk.ID, len(chunk.Embedding), info.Dimension)
		}

		score := cosineSimilarity(queryVector, chunk.Embedding, queryNorm)
		if score < scoreThreshold {
			continue
		}

		candidates = append(candidates, scored{
			chunk: domain.RetrievedChunk{
				Chunk: chunk,
				Title: title,
				Score: score,
			},
			ingestedAt: ingestedAt.Time.UnixNano(),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.chunk.Score != b.chunk.Score {
			return a.chunk.Score > b.chunk.Score
		}
		if a.ingestedAt != b.ingestedAt {
			return a.ingestedAt < b.ingestedAt
		}
		if a.chunk.Chunk.Ordinal != b.chunk.Chunk.Ordinal {
			return a.chunk.Chunk.Ordinal < b.chunk.Chunk.Ordinal
		}
		return a.chunk.Chunk.ID < b.chunk.Chunk.ID
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	results := make([]domain.RetrievedChunk, len(candidates))
	for i, c := range candidates {
		results[i] = c.chunk
	}

	return results, nil
}

// EmbeddingInfo returns the pinned embedding model and dimension.
func (s *Store) EmbeddingInfo(ctx context.Context) (*driven.EmbeddingInfo, error) {
	row := s.db.QueryRowContext(ctx, "SELECT model, dimension FROM embedding_metadata WHERE id = 1")

	var info driven.EmbeddingInfo
	if err := row.Scan(&info.Model, &info.Dimension); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning embedding metadata: %w", err)
	}

	return &info, nil
}

// SetEmbeddingInfo pins the embedding model and dimension. Conflicting
// values are rejected: a model or dimension change requires a full
// rebuild, never a partial mix.
func (s *Store) SetEmbeddingInfo(ctx context.Context, model string, dimension int) error {
	existing, err := s.EmbeddingInfo(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if existing != nil {
		if existing.Model != model {
			return fmt.Errorf("%w: index built with %q, run attempted %q",
				domain.ErrModelMismatch, existing.Model, model)
		}
		if existing.Dimension != dimension {
			return fmt.Errorf("%w: index has %d dimensions, run attempted %d",
				domain.ErrDimensionMismatch, existing.Dimension, dimension)
		}
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO embedding_metadata (id, model, dimension) VALUES (1, ?, ?)",
		model, dimension)
	if err != nil {
		return fmt.Errorf("saving embedding metadata: %w", err)
	}
	return nil
}

// ResetEmbeddingInfo clears the pinned model, allowing a full rebuild
// with a different embedding model.
func (s *Store) ResetEmbeddingInfo(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM embedding_metadata"); err != nil {
		return fmt.Errorf("clearing embedding metadata: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// vectorNorm computes the Euclidean norm of a vector.
func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosineSimilarity computes the cosine similarity between the query
// (with precomputed norm) and a stored vector. A zero-norm vector
// scores 0 rather than dividing by zero.
func cosineSimilarity(query, stored []float32, queryNorm float64) float64 {
	var dot float64
	for i := range query {
		dot += float64(query[i]) * float64(stored[i])
	}
	denom := queryNorm * vectorNorm(stored)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
