package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campuskb/poliq/internal/core/domain"
)

var documentsJSON bool

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List the indexed policy documents",
	RunE:  runDocuments,
}

func init() {
	documentsCmd.Flags().BoolVar(&documentsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(documentsCmd)
}

func runDocuments(cmd *cobra.Command, _ []string) error {
	if deps.Store == nil {
		return errors.New("store not configured")
	}

	docs, err := deps.Store.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if documentsJSON {
		return outputDocumentsJSON(cmd, docs)
	}
	return outputDocumentsTable(cmd, docs)
}

func outputDocumentsJSON(cmd *cobra.Command, docs []domain.Document) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal documents: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputDocumentsTable(cmd *cobra.Command, docs []domain.Document) error {
	if len(docs) == 0 {
		cmd.Println("No documents indexed yet. Run \"poliq index\" first.")
		return nil
	}

	cmd.Printf("Indexed documents (%d):\n\n", len(docs))
	for i, doc := range docs {
		cmd.Printf("  [%d] %s\n", i+1, doc.Title)
		cmd.Printf("      ID: %s, %d page(s), ingested %s\n",
			doc.ID, doc.PageCount, doc.IngestedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
