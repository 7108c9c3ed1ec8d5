package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/campuskb/poliq/internal/core/ports/driving"
)

// configKeyPoliciesDir mirrors file.KeyPoliciesDir without importing
// the driven adapter from the driving side.
const configKeyPoliciesDir = "policies.dir"

var (
	indexDir     string
	indexRebuild bool
	indexWatch   bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or refresh the policy index",
	Long: `Scans the policies directory for PDF files and synchronises the
local index with it. Unchanged documents (by content hash) are
skipped unless --rebuild is given. With --watch, poliq keeps
running and re-indexes whenever the directory changes.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexDir, "dir", "d", "", "policies directory (default from config, else ~/.poliq/policies)")
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "re-ingest every document even when unchanged")
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "keep watching the directory and re-index on changes")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	if deps.NewIngest == nil {
		return errors.New("ingest service not configured")
	}

	dir, err := resolvePoliciesDir()
	if err != nil {
		return err
	}

	ingest, err := deps.NewIngest(dir)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	report, err := ingest.Rebuild(ctx, driving.RebuildOptions{Force: indexRebuild})
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}

	cmd.Printf("Indexed %d document(s) (%d chunks), %d unchanged, %d removed.\n",
		report.Ingested, report.Chunks, report.Unchanged, report.Removed)
	if report.SkippedPages > 0 {
		cmd.Printf("Warning: %d page(s) could not be parsed and were skipped.\n", report.SkippedPages)
	}

	if !indexWatch {
		return nil
	}

	cmd.Printf("Watching %s for changes (Ctrl-C to stop)...\n", dir)
	return ingest.Watch(ctx)
}

// resolvePoliciesDir picks the directory in flag > config > default
// order and verifies it exists.
func resolvePoliciesDir() (string, error) {
	dir := indexDir
	if dir == "" && deps.Config != nil {
		dir = deps.Config.GetString(configKeyPoliciesDir)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".poliq", "policies")
	}

	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("policies directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("policies path %s is not a directory", dir)
	}
	return dir, nil
}
