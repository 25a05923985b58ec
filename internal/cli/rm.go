package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm <chat-id>",
		Short: "Delete a chat with its messages and bookmarks",
		Args:  cobra.ExactArgs(1),
		RunE:  runRm,
	}

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	a, err := openArchive(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.svc.DeleteChat(cmd.Context(), args[0]); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"chat_id":%q}`+"\n", args[0])
	return err
}
