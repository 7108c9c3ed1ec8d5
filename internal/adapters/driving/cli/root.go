// Package cli wires the cobra command tree to the core services.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/campuskb/poliq/internal/core/ports/driven"
	"github.com/campuskb/poliq/internal/core/ports/driving"
	"github.com/campuskb/poliq/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var verbose bool

// Dependencies are the services the commands run against. The
// assistant and ingest orchestrator are built lazily so commands that
// never call a model (documents, version) work without an API key.
type Dependencies struct {
	Store  driven.PolicyStore
	Config driven.ConfigStore

	NewAssistant func() (driving.Assistant, error)
	NewIngest    func(dir string) (driving.IngestOrchestrator, error)
}

var deps Dependencies

var rootCmd = &cobra.Command{
	Use:   "poliq",
	Short: "Ask questions about your policy documents",
	Long: `poliq indexes a folder of policy PDFs into a local database and
answers natural-language questions about them, citing the policy
title and page for every claim.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Configure injects the service dependencies. Must be called before
// Execute.
func Configure(d Dependencies) {
	deps = d
}

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a context; commands see it
// via cmd.Context() and stop when it is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
