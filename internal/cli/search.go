package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-chat-archive/internal/domain"
	"github.com/tbourn/go-chat-archive/internal/parser"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search messages by substring",
		Long:  "Search message content and senders, ignoring case. Words are joined into one query.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().StringP("chat", "c", "", "Restrict to one chat")
	cmd.Flags().Bool("render", false, "Print hits as transcript lines instead of JSON")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	chatID, _ := cmd.Flags().GetString("chat")
	render, _ := cmd.Flags().GetBool("render")
	query := strings.Join(args, " ")

	a, err := openArchive(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	hits, err := a.svc.Search(cmd.Context(), query, chatID)
	if err != nil {
		return err
	}
	if render {
		_, err := fmt.Fprint(cmd.OutOrStdout(), parser.Format(toParserMessages(hits)))
		return err
	}
	return printJSON(cmd, hits)
}

func toParserMessages(msgs []domain.Message) []parser.Message {
	out := make([]parser.Message, len(msgs))
	for i, m := range msgs {
		out[i] = parser.Message{Timestamp: m.Timestamp, Sender: m.Sender, Content: m.Content}
	}
	return out
}
