package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	toggle := &cobra.Command{
		Use:   "bookmark <message-id>",
		Short: "Toggle the bookmark on a message",
		Args:  cobra.ExactArgs(1),
		RunE:  runBookmark,
	}
	toggle.Flags().StringP("chat", "c", "", "Require the message to belong to this chat")
	toggle.Flags().StringP("note", "n", "", "Note stored with a new bookmark")

	list := &cobra.Command{
		Use:   "bookmarks",
		Short: "List bookmarks with their messages",
		Args:  cobra.NoArgs,
		RunE:  runBookmarks,
	}
	list.Flags().StringP("chat", "c", "", "Restrict to one chat")

	RootCmd.AddCommand(toggle, list)
}

type bookmarkResult struct {
	MessageID  string `json:"message_id"`
	Bookmarked bool   `json:"bookmarked"`
}

func runBookmark(cmd *cobra.Command, args []string) error {
	chatID, _ := cmd.Flags().GetString("chat")
	var note *string
	if cmd.Flags().Changed("note") {
		n, _ := cmd.Flags().GetString("note")
		note = &n
	}

	a, err := openArchive(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	on, err := a.svc.ToggleBookmark(cmd.Context(), args[0], chatID, note)
	if err != nil {
		return err
	}
	return printJSON(cmd, bookmarkResult{MessageID: args[0], Bookmarked: on})
}

func runBookmarks(cmd *cobra.Command, args []string) error {
	chatID, _ := cmd.Flags().GetString("chat")

	a, err := openArchive(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	items, err := a.svc.BookmarkedMessages(cmd.Context(), chatID)
	if err != nil {
		return err
	}
	return printJSON(cmd, items)
}
