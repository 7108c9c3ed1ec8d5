package driving

import "context"

// IngestOrchestrator rebuilds the policy index from the source
// directory of PDFs.
type IngestOrchestrator interface {
	// Rebuild scans the source directory, diffs content hashes against
	// the store, and re-ingests new or changed documents. Documents
	// whose source file is gone are removed. When opts.Force is set,
	// every document is re-ingested regardless of hash.
	Rebuild(ctx context.Context, opts RebuildOptions) (*RebuildReport, error)

	// Watch blocks, re-running an incremental rebuild whenever the
	// source directory changes, until the context is cancelled.
	Watch(ctx context.Context) error
}

// RebuildOptions configures a rebuild run.
type RebuildOptions struct {
	// Force re-ingests every document even when its hash is unchanged.
	Force bool
}

// RebuildReport summarises a rebuild run.
type RebuildReport struct {
	// Ingested is the number of documents (re-)ingested.
	Ingested int

	// Unchanged is the number of documents skipped because their
	// content hash matched the store.
	Unchanged int

	// Removed is the number of documents deleted because their source
	// file no longer exists.
	Removed int

	// SkippedPages is the number of pages that could not be parsed.
	SkippedPages int

	// Chunks is the total number of chunks written.
	Chunks int
}
