package driven

import "github.com/campuskb/poliq/internal/core/domain"

// TextCleaner strips headers, footers and extraction noise from raw
// pages, producing one cleaned text block per page.
type TextCleaner interface {
	Clean(pages []domain.Page) []domain.CleanedPage
}

// ChunkProcessor splits cleaned pages into embedding-ready chunks with
// deterministic IDs and ordinals.
type ChunkProcessor interface {
	Process(doc *domain.Document, pages []domain.CleanedPage) []domain.Chunk
}
