package driven

import (
	"context"

	"github.com/campuskb/poliq/internal/core/domain"
)

// PageExtractor pulls raw per-page text and table rows out of a PDF.
//
// Extraction fails soft: a page that cannot be parsed yields a Page
// with no lines and is logged as skipped; only a file that cannot be
// opened at all returns an error (wrapping domain.ErrParseFailure).
type PageExtractor interface {
	// Extract returns one Page per physical page, in order.
	Extract(ctx context.Context, path string) ([]domain.Page, error)
}
