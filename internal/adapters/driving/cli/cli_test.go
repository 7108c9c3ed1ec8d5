package cli

import (
	"bytes"
	"context"
	"fmt"

	"github.com/campuskb/poliq/internal/core/domain"
	"github.com/campuskb/poliq/internal/core/ports/driven"
	"github.com/campuskb/poliq/internal/core/ports/driving"
)

// fakeStore serves ListDocuments for the documents command.
type fakeStore struct {
	docs    []domain.Document
	listErr error
}

func (f *fakeStore) UpsertDocument(context.Context, domain.Document, []domain.Chunk) error {
	return nil
}
func (f *fakeStore) DeleteDocument(context.Context, string) error { return nil }
func (f *fakeStore) GetDocument(context.Context, string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeStore) ListDocuments(context.Context) ([]domain.Document, error) {
	return f.docs, f.listErr
}

func (f *fakeStore) SimilarChunks(context.Context, []float32, int, float64) ([]domain.RetrievedChunk, error) {
	return nil, nil
}

func (f *fakeStore) EmbeddingInfo(context.Context) (*driven.EmbeddingInfo, error) {
	return nil, domain.ErrNotFound
}
func (f *fakeStore) SetEmbeddingInfo(context.Context, string, int) error { return nil }
func (f *fakeStore) ResetEmbeddingInfo(context.Context) error            { return nil }
func (f *fakeStore) Close() error                                        { return nil }

// fakeAssistant echoes a canned reply and records what it was asked.
type fakeAssistant struct {
	reply    string
	err      error
	asked    []string
	sessions []string
	resets   []string
}

func (f *fakeAssistant) NewSession() string {
	id := fmt.Sprintf("session-%d", len(f.sessions)+1)
	f.sessions = append(f.sessions, id)
	return id
}

func (f *fakeAssistant) Ask(_ context.Context, _, message string) (string, error) {
	f.asked = append(f.asked, message)
	return f.reply, f.err
}

func (f *fakeAssistant) Reset(sessionID string) {
	f.resets = append(f.resets, sessionID)
}

// fakeIngest records rebuild calls.
type fakeIngest struct {
	report   *driving.RebuildReport
	err      error
	rebuilds []driving.RebuildOptions
}

func (f *fakeIngest) Rebuild(_ context.Context, opts driving.RebuildOptions) (*driving.RebuildReport, error) {
	f.rebuilds = append(f.rebuilds, opts)
	return f.report, f.err
}

func (f *fakeIngest) Watch(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// withDeps swaps the package dependencies for one test.
func withDeps(d Dependencies, fn func()) {
	saved := deps
	deps = d
	defer func() { deps = saved }()
	fn()
}

// execute runs the root command with args, capturing stdout.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
