package domain

import "time"

// Document represents one indexed policy PDF.
// It is the canonical representation after extraction and cleaning.
type Document struct {
	// ID is the stable identifier, derived from the source filename.
	ID string

	// Title is the human-readable title shown in catalog listings
	// and citations. Defaults to the source filename.
	Title string

	// Path is the location of the source PDF on disk.
	Path string

	// ContentHash is the SHA-256 hex digest of the source file,
	// used for change detection between rebuilds.
	ContentHash string

	// PageCount is the number of pages in the source PDF.
	PageCount int

	// IngestedAt is when the document was last (re-)ingested.
	IngestedAt time.Time
}

// Chunk is a retrieval unit: a contiguous span of cleaned text from a
// single page of a document. Chunks are immutable once written; a
// changed document replaces its full chunk set atomically.
type Chunk struct {
	// ID is the stable identifier: "<documentID>_p<page>_c<index>".
	// Re-ingesting an unchanged document reproduces IDs byte for byte.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Page is the 1-based page number the chunk was extracted from.
	// Chunks never span a page boundary.
	Page int

	// Ordinal is the strictly increasing position within the document.
	Ordinal int

	// Content is the cleaned chunk text.
	Content string

	// WordCount is the number of whitespace-separated words in Content.
	WordCount int

	// Embedding is the vector representation used for similarity search.
	// Populated by the embedding gateway during ingestion.
	Embedding []float32
}

// Page holds the extracted content of a single PDF page before cleaning.
type Page struct {
	// Number is the 1-based page number.
	Number int

	// Lines is the raw extracted text, one entry per non-empty line.
	Lines []string

	// TableRows holds flattened table rows, already delimiter-joined.
	// Kept separate from Lines so the chunker can keep rows intact.
	TableRows []string
}

// CleanedPage is a page after header/footer removal and normalisation.
type CleanedPage struct {
	// Number is the 1-based page number.
	Number int

	// Text is the normalised text block. Empty when the page could
	// not be parsed (the page is skipped, not fatal).
	Text string
}

// RetrievedChunk is a chunk returned from similarity search together
// with its relevance score and citation provenance.
type RetrievedChunk struct {
	Chunk Chunk

	// Title is the parent document title, denormalised for citations.
	Title string

	// Score is the cosine similarity against the query vector.
	// Higher is more relevant.
	Score float64
}

// Citation identifies the provenance of a claim in an answer.
type Citation struct {
	// Title is the policy document title.
	Title string

	// Page is the page number the supporting chunk came from.
	Page int
}
