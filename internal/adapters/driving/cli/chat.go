package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive policy Q&A session",
	Long: `Opens an interactive session against the indexed policy documents.
Conversation history is kept in memory for the session only.

Commands inside the session:
  /reset  forget the conversation so far
  /quit   leave the session`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if deps.NewAssistant == nil {
		return errors.New("assistant not configured")
	}

	assistant, err := deps.NewAssistant()
	if err != nil {
		return err
	}
	sessionID := assistant.NewSession()

	cmd.Println("Ask about your policy documents. /reset clears history, /quit exits.")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			assistant.Reset(sessionID)
			sessionID = assistant.NewSession()
			cmd.Println("Conversation cleared.")
			continue
		}

		reply, err := assistant.Ask(cmd.Context(), sessionID, line)
		if err != nil {
			return fmt.Errorf("answering failed: %w", err)
		}
		cmd.Println()
		cmd.Println(reply)
		cmd.Println()
	}

	return scanner.Err()
}
