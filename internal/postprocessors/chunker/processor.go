// Package chunker splits cleaned page text into overlapping,
// sentence-aligned chunks with stable identifiers and page provenance.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/campuskb/poliq/internal/core/domain"
	"github.com/campuskb/poliq/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.ChunkProcessor = (*Processor)(nil)

// DefaultChunkSize is the default chunk budget in words.
const DefaultChunkSize = 220

// DefaultOverlap is the default overlap between adjacent chunks in words.
const DefaultOverlap = 40

// Processor splits documents into sentence-aware chunks.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk budget in words.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in words.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits cleaned pages into chunks. Chunks never cross a page
// boundary; ordinals increase strictly across the whole document, and
// IDs are derived from the document ID, page number, and per-page
// chunk index, so an unchanged document reproduces identical chunks.
func (p *Processor) Process(doc *domain.Document, pages []domain.CleanedPage) []domain.Chunk {
	var chunks []domain.Chunk
	ordinal := 0

	for _, page := range pages {
		text := strings.TrimSpace(page.Text)
		if text == "" {
			continue
		}

		pieces := p.chunkText(text)
		if len(pieces) == 0 {
			pieces = []string{text}
		}

		for idx, piece := range pieces {
			chunks = append(chunks, domain.Chunk{
				ID:         fmt.Sprintf("%s_p%d_c%d", doc.ID, page.Number, idx),
				DocumentID: doc.ID,
				Page:       page.Number,
				Ordinal:    ordinal,
				Content:    piece,
				WordCount:  len(strings.Fields(piece)),
			})
			ordinal++
		}
	}

	return chunks
}

// chunkText greedily accumulates sentences up to the word budget, then
// seeds the next chunk with the trailing sentences covering the
// configured overlap. A single sentence longer than the budget is
// emitted whole, never truncated.
func (p *Processor) chunkText(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	counts := make([]int, len(sentences))
	for i, sentence := range sentences {
		counts[i] = len(strings.Fields(sentence))
		if counts[i] == 0 {
			counts[i] = 1
		}
	}

	var out []string
	total := len(sentences)
	start := 0

	for start < total {
		prevStart := start
		words := 0
		end := start
		var parts []string

		for end < total {
			if len(parts) > 0 && words+counts[end] > p.chunkSize {
				break
			}
			parts = append(parts, sentences[end])
			words += counts[end]
			end++
		}

		if len(parts) == 0 {
			// Oversized single sentence
			parts = append(parts, sentences[end])
			end++
		}

		out = append(out, strings.Join(parts, " "))

		if end >= total {
			break
		}

		// Walk back over trailing sentences until the overlap budget
		// is consumed; the next chunk re-includes them as its seed.
		remaining := p.overlap
		next := end
		for next > prevStart && remaining > 0 {
			next--
			remaining -= counts[next]
		}
		start = next
		if start <= prevStart {
			start = prevStart + 1
		}
		if start >= end {
			if end-1 > prevStart {
				start = end - 1
			} else {
				start = end
			}
		}
	}

	return out
}

// splitSentences splits text on punctuation-aware boundaries: a
// terminator followed by whitespace and an upper-case letter or digit.
func splitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 || j >= len(runes) {
			continue
		}
		if unicode.IsUpper(runes[j]) || unicode.IsDigit(runes[j]) {
			if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
				sentences = append(sentences, s)
			}
			start = j
			i = j - 1
		}
	}

	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}
