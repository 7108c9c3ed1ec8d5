// Package pdf extracts and cleans per-page text from policy PDFs.
package pdf

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/campuskb/poliq/internal/core/domain"
	"github.com/campuskb/poliq/internal/core/ports/driven"
	"github.com/campuskb/poliq/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.PageExtractor = (*Extractor)(nil)

// cellGap is the horizontal gap (in points) between two text runs on
// the same row beyond which they are treated as separate table cells.
const cellGap = 24.0

// Extractor reads PDFs page by page using ledongthuc/pdf.
type Extractor struct{}

// NewExtractor creates a PDF page extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns one Page per physical page. Pages that cannot be
// parsed come back with no lines and are logged as skipped; only a
// file that cannot be opened at all is an error.
func (e *Extractor) Extract(_ context.Context, path string) ([]domain.Page, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrParseFailure, path, err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages := make([]domain.Page, 0, total)

	for num := 1; num <= total; num++ {
		page := extractOnePage(reader, num)
		if len(page.Lines) == 0 && len(page.TableRows) == 0 {
			logger.Error("Skipped page %d of %s: no extractable text", num, path)
		}
		pages = append(pages, page)
	}

	return pages, nil
}

// extractOnePage pulls lines and table rows from a single page.
// The underlying library panics on some malformed content streams, so
// failures are converted into an empty page rather than aborting the
// whole document.
func extractOnePage(reader *pdf.Reader, num int) (page domain.Page) {
	page.Number = num

	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Page %d: extraction panic: %v", num, r)
			page.Lines = nil
			page.TableRows = nil
		}
	}()

	p := reader.Page(num)
	if p.V.IsNull() {
		return page
	}

	rows, err := p.GetTextByRow()
	if err != nil {
		logger.Warn("Page %d: %v", num, err)
		return page
	}

	for _, row := range rows {
		cells := rowCells(row)
		switch {
		case len(cells) == 0:
			// Blank row
		case len(cells) == 1:
			line := strings.TrimSpace(cells[0])
			if line != "" {
				page.Lines = append(page.Lines, line)
			}
		default:
			// Multiple horizontally separated runs: treat as a table
			// row so the cleaner can flatten it without losing cells.
			page.TableRows = append(page.TableRows, strings.Join(cells, " | "))
		}
	}

	return page
}

// rowCells groups the text runs of a row into cells, splitting where
// the horizontal gap between runs exceeds cellGap.
func rowCells(row *pdf.Row) []string {
	texts := make([]pdf.Text, len(row.Content))
	copy(texts, row.Content)
	sort.Slice(texts, func(i, j int) bool { return texts[i].X < texts[j].X })

	var cells []string
	var current strings.Builder
	var lastEnd float64

	for i, t := range texts {
		if t.S == "" {
			continue
		}
		if i > 0 && t.X-lastEnd > cellGap && current.Len() > 0 {
			cells = append(cells, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(t.S)
		lastEnd = t.X + t.W
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		cells = append(cells, s)
	}

	return cells
}
