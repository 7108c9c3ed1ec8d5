package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskb/poliq/internal/core/domain"
)

func TestDocumentsCmd_Table(t *testing.T) {
	store := &fakeStore{docs: []domain.Document{
		{ID: "attendance_policy", Title: "Attendance Policy.pdf", PageCount: 12,
			IngestedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)},
		{ID: "grading_policy", Title: "Grading Policy.pdf", PageCount: 8,
			IngestedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)},
	}}

	withDeps(Dependencies{Store: store}, func() {
		out, err := execute("documents")
		require.NoError(t, err)
		assert.Contains(t, out, "Indexed documents (2):")
		assert.Contains(t, out, "Attendance Policy.pdf")
		assert.Contains(t, out, "ID: grading_policy, 8 page(s)")
	})
}

func TestDocumentsCmd_Empty(t *testing.T) {
	withDeps(Dependencies{Store: &fakeStore{}}, func() {
		out, err := execute("documents")
		require.NoError(t, err)
		assert.Contains(t, out, "No documents indexed yet.")
	})
}

func TestDocumentsCmd_JSON(t *testing.T) {
	store := &fakeStore{docs: []domain.Document{
		{ID: "handbook", Title: "Handbook.pdf", PageCount: 40},
	}}

	withDeps(Dependencies{Store: store}, func() {
		out, err := execute("documents", "--json")
		require.NoError(t, err)
		assert.Contains(t, out, `"ID": "handbook"`)
		assert.Contains(t, out, `"Title": "Handbook.pdf"`)
	})

	// Reset the flag for other tests.
	documentsJSON = false
}

func TestDocumentsCmd_StoreMissing(t *testing.T) {
	withDeps(Dependencies{}, func() {
		_, err := execute("documents")
		assert.Error(t, err)
	})
}
