package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question about the indexed policies",
	Long: `Answers one question from the indexed policy documents and prints
the grounded answer with its sources. For a multi-turn
conversation use "poliq chat".`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if deps.NewAssistant == nil {
		return errors.New("assistant not configured")
	}

	assistant, err := deps.NewAssistant()
	if err != nil {
		return err
	}

	reply, err := assistant.Ask(cmd.Context(), assistant.NewSession(), args[0])
	if err != nil {
		return fmt.Errorf("answering failed: %w", err)
	}

	cmd.Println(reply)
	return nil
}
