package chunker

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/campuskb/poliq/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.chunkSize)
		}
		if p.overlap != DefaultOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultOverlap, p.overlap)
		}
	})

	t.Run("custom values", func(t *testing.T) {
		p := New(WithChunkSize(50), WithOverlap(10))
		if p.chunkSize != 50 {
			t.Errorf("expected chunkSize 50, got %d", p.chunkSize)
		}
		if p.overlap != 10 {
			t.Errorf("expected overlap 10, got %d", p.overlap)
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(20), WithOverlap(30))
		if p.overlap >= p.chunkSize {
			t.Error("overlap should be reduced when it exceeds chunk size")
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", p.chunkSize)
		}
		if p.overlap != DefaultOverlap {
			t.Errorf("expected default overlap, got %d", p.overlap)
		}
	})
}

// sentencesOf builds a page text of n sentences, each with the given
// number of words and a capitalised first word.
func sentencesOf(n, words int) string {
	var sentences []string
	for i := 0; i < n; i++ {
		parts := make([]string, words)
		for w := 0; w < words; w++ {
			parts[w] = fmt.Sprintf("word%d_%d", i, w)
		}
		parts[0] = "Start" + parts[0]
		sentences = append(sentences, strings.Join(parts, " ")+".")
	}
	return strings.Join(sentences, " ")
}

func TestProcess_SentenceBoundaries(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(3))
	doc := &domain.Document{ID: "attendance_policy"}
	pages := []domain.CleanedPage{{Number: 1, Text: sentencesOf(6, 4)}}

	chunks := p.Process(doc, pages)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for _, chunk := range chunks {
		if !strings.HasSuffix(chunk.Content, ".") {
			t.Errorf("chunk %s does not end on a sentence boundary: %q", chunk.ID, chunk.Content)
		}
		if chunk.WordCount != len(strings.Fields(chunk.Content)) {
			t.Errorf("chunk %s word count mismatch", chunk.ID)
		}
	}
}

func TestProcess_Overlap(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(3))
	doc := &domain.Document{ID: "doc"}
	pages := []domain.CleanedPage{{Number: 1, Text: sentencesOf(6, 4)}}

	chunks := p.Process(doc, pages)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// The tail sentence of chunk i must reappear at the head of
	// chunk i+1 (the overlap seed covers at least one sentence).
	for i := 0; i < len(chunks)-1; i++ {
		tail := lastSentence(chunks[i].Content)
		if !strings.HasPrefix(chunks[i+1].Content, tail) {
			t.Errorf("chunk %d head %q does not start with chunk %d tail %q",
				i+1, chunks[i+1].Content, i, tail)
		}
	}
}

func lastSentence(content string) string {
	trimmed := strings.TrimSuffix(content, ".")
	idx := strings.LastIndex(trimmed, ". ")
	if idx < 0 {
		return content
	}
	return trimmed[idx+2:] + "."
}

func TestProcess_OversizedSentence(t *testing.T) {
	p := New(WithChunkSize(5), WithOverlap(0))
	doc := &domain.Document{ID: "doc"}

	// One sentence far beyond the budget must be emitted whole.
	long := "Start " + strings.Repeat("word ", 20) + "end."
	pages := []domain.CleanedPage{{Number: 1, Text: long}}

	chunks := p.Process(doc, pages)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != long {
		t.Errorf("oversized sentence was truncated: %q", chunks[0].Content)
	}
}

func TestProcess_PageProvenance(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(2))
	doc := &domain.Document{ID: "dress_code"}
	pages := []domain.CleanedPage{
		{Number: 1, Text: sentencesOf(4, 4)},
		{Number: 2, Text: ""},
		{Number: 3, Text: sentencesOf(4, 4)},
	}

	chunks := p.Process(doc, pages)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}

	for i, chunk := range chunks {
		if chunk.Page != 1 && chunk.Page != 3 {
			t.Errorf("chunk on unexpected page %d", chunk.Page)
		}
		if chunk.Ordinal != i {
			t.Errorf("ordinal %d at index %d: must be strictly increasing", chunk.Ordinal, i)
		}
		if !strings.HasPrefix(chunk.ID, fmt.Sprintf("dress_code_p%d_c", chunk.Page)) {
			t.Errorf("unexpected chunk ID %s", chunk.ID)
		}
	}
}

func TestProcess_Deterministic(t *testing.T) {
	p := New(WithChunkSize(12), WithOverlap(4))
	doc := &domain.Document{ID: "handbook"}
	pages := []domain.CleanedPage{
		{Number: 1, Text: sentencesOf(5, 5)},
		{Number: 2, Text: sentencesOf(3, 7)},
	}

	first := p.Process(doc, pages)
	second := p.Process(doc, pages)

	if !reflect.DeepEqual(first, second) {
		t.Error("re-chunking an unchanged document must produce identical chunks")
	}
}

func TestProcess_EmptyPages(t *testing.T) {
	p := New()
	doc := &domain.Document{ID: "doc"}

	chunks := p.Process(doc, []domain.CleanedPage{{Number: 1, Text: "  "}})
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty pages, got %d", len(chunks))
	}
}

func TestSplitSentences(t *testing.T) {
	t.Run("splits on terminator before capital", func(t *testing.T) {
		got := splitSentences("Students must attend class. Absences require a note. 3 strikes apply.")
		if len(got) != 3 {
			t.Fatalf("expected 3 sentences, got %d: %v", len(got), got)
		}
	})

	t.Run("does not split abbreviations before lowercase", func(t *testing.T) {
		got := splitSentences("The policy applies to grades k. through twelve.")
		if len(got) != 1 {
			t.Errorf("expected 1 sentence, got %d: %v", len(got), got)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := splitSentences("   "); len(got) != 0 {
			t.Errorf("expected no sentences, got %v", got)
		}
	})
}
