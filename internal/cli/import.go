package cli

import (
	"github.com/spf13/cobra"

	"github.com/tbourn/go-chat-archive/internal/domain"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a transcript",
		Long:  "Validate, parse and store a chat export. Use - to read stdin.",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}

	cmd.Flags().String("key", "", "Idempotency key; re-running with the same key returns the first chat")

	RootCmd.AddCommand(cmd)
}

type importResult struct {
	Chat     *domain.Chat `json:"chat"`
	Replayed bool         `json:"replayed"`
}

func runImport(cmd *cobra.Command, args []string) error {
	key, _ := cmd.Flags().GetString("key")

	raw, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	a, err := openArchive(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	chat, replayed, err := a.svc.ImportTranscriptOnce(cmd.Context(), "cli", key, raw, a.cfg.IdempotencyTTL)
	if err != nil {
		return err
	}
	return printJSON(cmd, importResult{Chat: chat, Replayed: replayed})
}
