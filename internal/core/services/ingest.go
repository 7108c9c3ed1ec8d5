package services

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/campuskb/poliq/internal/core/domain"
	"github.com/campuskb/poliq/internal/core/ports/driven"
	"github.com/campuskb/poliq/internal/core/ports/driving"
	"github.com/campuskb/poliq/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestOrchestrator = (*IngestService)(nil)

// DefaultIngestWorkers bounds how many documents are processed in
// parallel during a rebuild.
const DefaultIngestWorkers = 4

// watchDebounce coalesces bursts of filesystem events into one rebuild.
const watchDebounce = 2 * time.Second

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// IngestService scans a directory of policy PDFs and keeps the store
// in sync with it.
type IngestService struct {
	dir       string
	extractor driven.PageExtractor
	cleaner   driven.TextCleaner
	chunker   driven.ChunkProcessor
	embedding driven.EmbeddingService
	store     driven.PolicyStore
	workers   int
}

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithIngestWorkers bounds parallel document processing.
func WithIngestWorkers(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewIngestService creates the ingestion orchestrator.
func NewIngestService(
	dir string,
	extractor driven.PageExtractor,
	cleaner driven.TextCleaner,
	chunker driven.ChunkProcessor,
	embedding driven.EmbeddingService,
	store driven.PolicyStore,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		dir:       dir,
		extractor: extractor,
		cleaner:   cleaner,
		chunker:   chunker,
		embedding: embedding,
		store:     store,
		workers:   DefaultIngestWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rebuild synchronises the store with the policies directory.
func (s *IngestService) Rebuild(ctx context.Context, opts driving.RebuildOptions) (*driving.RebuildReport, error) {
	logger.Section("Index Rebuild")

	files, err := s.discover()
	if err != nil {
		return nil, err
	}
	logger.Info("Found %d PDF(s) in %s", len(files), s.dir)

	// Pin the embedding model before writing anything; a model change
	// against an existing index must fail fast. A forced rebuild
	// re-ingests everything, so it may clear the pin and adopt a new
	// model.
	if len(files) > 0 {
		if opts.Force {
			if err := s.store.ResetEmbeddingInfo(ctx); err != nil {
				return nil, fmt.Errorf("clearing embedding model pin: %w", err)
			}
		}
		if err := s.store.SetEmbeddingInfo(ctx, s.embedding.ModelName(), s.embedding.Dimensions()); err != nil {
			return nil, fmt.Errorf("pinning embedding model: %w", err)
		}
	}

	existing, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	byID := make(map[string]domain.Document, len(existing))
	for _, doc := range existing {
		byID[doc.ID] = doc
	}

	report := &driving.RebuildReport{}
	var mu sync.Mutex

	type job struct {
		path string
		id   string
		hash string
	}
	var jobs []job
	seen := make(map[string]bool, len(files))

	for _, path := range files {
		id := slugify(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		if id == "" {
			logger.Warn("Skipping %s: empty document ID after slugify", path)
			continue
		}
		seen[id] = true

		hash, err := hashFile(path)
		if err != nil {
			return nil, fmt.Errorf("hashing %s: %w", path, err)
		}

		if prev, ok := byID[id]; ok && !opts.Force && prev.ContentHash == hash {
			mu.Lock()
			report.Unchanged++
			mu.Unlock()
			logger.Debug("Unchanged: %s", id)
			continue
		}
		jobs = append(jobs, job{path: path, id: id, hash: hash})
	}

	// Process changed documents in parallel; each document's replace
	// stays transactional inside the store. The job channel is filled
	// up front so a failing worker never strands the producer.
	jobCh := make(chan job, len(jobs))
	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)

	workers := s.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	errCh := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				if ctx.Err() != nil {
					return
				}
				skipped, chunkCount, err := s.ingestOne(ctx, j.path, j.id, j.hash)
				if err != nil {
					errCh <- fmt.Errorf("ingesting %s: %w", j.id, err)
					return
				}
				mu.Lock()
				report.Ingested++
				report.SkippedPages += skipped
				report.Chunks += chunkCount
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case err := <-errCh:
		return nil, err
	default:
	}

	// Drop documents whose source file disappeared.
	for id := range byID {
		if seen[id] {
			continue
		}
		if err := s.store.DeleteDocument(ctx, id); err != nil {
			return nil, fmt.Errorf("removing %s: %w", id, err)
		}
		report.Removed++
		logger.Info("Removed %s (source file gone)", id)
	}

	logger.Info("Rebuild done: %d ingested, %d unchanged, %d removed, %d chunks",
		report.Ingested, report.Unchanged, report.Removed, report.Chunks)
	return report, nil
}

// ingestOne runs one document through extract, clean, chunk, embed,
// and store. It returns the number of unparseable pages and chunks
// written.
func (s *IngestService) ingestOne(ctx context.Context, path, id, hash string) (int, int, error) {
	logger.Info("Ingesting %s", filepath.Base(path))

	pages, err := s.extractor.Extract(ctx, path)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", domain.ErrParseFailure, err)
	}

	cleaned := s.cleaner.Clean(pages)

	skipped := 0
	for _, page := range cleaned {
		if page.Text == "" {
			skipped++
		}
	}
	if skipped > 0 {
		logger.Error("Skipped %d unparseable page(s) in %s", skipped, filepath.Base(path))
	}

	doc := domain.Document{
		ID:          id,
		Title:       filepath.Base(path),
		Path:        path,
		ContentHash: hash,
		PageCount:   len(pages),
		IngestedAt:  time.Now().UTC(),
	}

	chunks := s.chunker.Process(&doc, cleaned)
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Content
		}
		vectors, err := s.embedding.EmbedBatch(ctx, texts)
		if err != nil {
			return skipped, 0, fmt.Errorf("embedding chunks: %w", err)
		}
		if len(vectors) != len(chunks) {
			return skipped, 0, fmt.Errorf("embedding returned %d vectors for %d chunks", len(vectors), len(chunks))
		}
		for i := range chunks {
			chunks[i].Embedding = vectors[i]
		}
	}

	if err := s.store.UpsertDocument(ctx, doc, chunks); err != nil {
		return skipped, 0, fmt.Errorf("storing document: %w", err)
	}
	return skipped, len(chunks), nil
}

// Watch re-runs an incremental rebuild whenever the policies directory
// changes, debounced, until the context is cancelled.
func (s *IngestService) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watching %s: %w", s.dir, err)
	}
	logger.Info("Watching %s for changes", s.dir)

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(event) {
				continue
			}
			logger.Debug("Change detected: %s", event)
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerCh = timer.C
			} else {
				timer.Reset(watchDebounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case <-timerCh:
			timer = nil
			timerCh = nil
			if _, err := s.Rebuild(ctx, driving.RebuildOptions{}); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				logger.Warn("Rebuild after change failed: %v", err)
			}
		}
	}
}

// relevantEvent reports whether a filesystem event should trigger a
// rebuild.
func relevantEvent(event fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(event.Name), ".pdf") {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

// discover lists the PDF files in the policies directory, sorted by
// name.
func (s *IngestService) discover() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading policies directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			files = append(files, filepath.Join(s.dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// slugify derives a document ID from a file name stem.
func slugify(stem string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(stem), "_"), "_")
}

// hashFile computes the SHA-256 of a file's contents.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
