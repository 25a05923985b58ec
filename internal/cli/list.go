package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List chats by recent activity",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := openArchive(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	return printJSON(cmd, a.svc.LoadChats(cmd.Context()))
}
