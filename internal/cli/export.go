package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export <chat-id>",
		Short: "Print the original transcript of a chat",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openArchive(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	raw, err := a.svc.ExportChat(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), raw)
	return err
}
