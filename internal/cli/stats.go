package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats <chat-id>",
		Short: "Show per-sender counts and activity for a chat",
		Args:  cobra.ExactArgs(1),
		RunE:  runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openArchive(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.svc.GetChatStats(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, st)
}
