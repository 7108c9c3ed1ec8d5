package pdf

import (
	"regexp"
	"strings"

	"github.com/campuskb/poliq/internal/core/domain"
	"github.com/campuskb/poliq/internal/core/ports/driven"
)

// Ensure Cleaner implements the interface.
var _ driven.TextCleaner = (*Cleaner)(nil)

// headerFooterThreshold is the fraction of pages on which a line must
// repeat (in the top or bottom band) to be treated as a header/footer.
const headerFooterThreshold = 0.6

// bandSize is how many lines from the top and bottom of each page are
// considered when detecting repeating headers and footers.
const bandSize = 3

var (
	pageNumberPattern = regexp.MustCompile(`(?i)^(page\s*)?\d{1,4}[a-z]*$`)
	dividerPattern    = regexp.MustCompile(`^[-_–—•\s]*$`)
	digitRunPattern   = regexp.MustCompile(`\d+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Cleaner implements driven.TextCleaner over Clean.
type Cleaner struct{}

// NewCleaner creates a text cleaner.
func NewCleaner() *Cleaner {
	return &Cleaner{}
}

// Clean implements driven.TextCleaner.
func (c *Cleaner) Clean(pages []domain.Page) []domain.CleanedPage {
	return Clean(pages)
}

// Clean strips repeating headers/footers, page-number tokens, and
// divider lines from the extracted pages, normalises the remaining
// text, and appends flattened table rows. One CleanedPage is returned
// per input page; unparseable pages yield an empty Text.
func Clean(pages []domain.Page) []domain.CleanedPage {
	headers, footers := detectRepeatingLines(pages)

	cleaned := make([]domain.CleanedPage, 0, len(pages))
	for _, page := range pages {
		var kept []string
		for _, line := range page.Lines {
			if headers[maskDigits(line)] || footers[maskDigits(line)] {
				continue
			}
			if pageNumberPattern.MatchString(line) {
				continue
			}
			if dividerPattern.MatchString(line) {
				continue
			}
			kept = append(kept, line)
		}
		// Table rows go last so their cell delimiters survive cleaning
		// and the chunker sees each row as a complete sentence.
		for _, row := range page.TableRows {
			kept = append(kept, terminated(row))
		}

		cleaned = append(cleaned, domain.CleanedPage{
			Number: page.Number,
			Text:   normaliseText(strings.Join(kept, "\n")),
		})
	}

	return cleaned
}

// detectRepeatingLines finds lines repeating verbatim (modulo page
// number substitution) in the top or bottom band across a majority of
// pages.
func detectRepeatingLines(pages []domain.Page) (headers, footers map[string]bool) {
	headerCounts := make(map[string]int)
	footerCounts := make(map[string]int)

	for _, page := range pages {
		lines := page.Lines
		top := bandSize
		if top > len(lines) {
			top = len(lines)
		}
		for _, line := range lines[:top] {
			headerCounts[maskDigits(line)]++
		}
		bottom := len(lines) - bandSize
		if bottom < 0 {
			bottom = 0
		}
		for _, line := range lines[bottom:] {
			footerCounts[maskDigits(line)]++
		}
	}

	total := len(pages)
	if total == 0 {
		total = 1
	}

	// A line must appear on at least two pages to count as repeating;
	// a single-page document has no headers to strip.
	headers = make(map[string]bool)
	footers = make(map[string]bool)
	for line, count := range headerCounts {
		if count >= 2 && float64(count)/float64(total) >= headerFooterThreshold {
			headers[line] = true
		}
	}
	for line, count := range footerCounts {
		if count >= 2 && float64(count)/float64(total) >= headerFooterThreshold {
			footers[line] = true
		}
	}

	return headers, footers
}

// maskDigits replaces digit runs with a placeholder so "Handbook p. 3"
// and "Handbook p. 14" count as the same header line.
func maskDigits(line string) string {
	return digitRunPattern.ReplaceAllString(line, "#")
}

// terminated ensures a flattened table row ends with a sentence
// terminator so the chunker keeps the row intact.
func terminated(row string) string {
	trimmed := strings.TrimSpace(row)
	if trimmed == "" {
		return trimmed
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		return trimmed
	}
	return trimmed + "."
}

// normaliseText folds typographic punctuation to ASCII and collapses
// runs of whitespace, matching the form chunks are stored in.
func normaliseText(text string) string {
	replacer := strings.NewReplacer(
		"–", "-", "—", "-",
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
	)
	text = replacer.Replace(text)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}
