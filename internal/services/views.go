package services

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/tbourn/go-chat-archive/internal/domain"
)

// The views below are pure functions of a State snapshot. Recompute them
// whenever the Bus reports a change.

// FilteredMessages returns the active chat's messages whose content or sender
// contains the search query under case folding. A blank query returns all.
func FilteredMessages(st State) []domain.Message {
	q := strings.TrimSpace(st.SearchQuery)
	if q == "" {
		return st.Messages
	}
	fold := cases.Fold()
	needle := fold.String(q)
	out := make([]domain.Message, 0, len(st.Messages))
	for _, m := range st.Messages {
		if strings.Contains(fold.String(m.Content), needle) || strings.Contains(fold.String(m.Sender), needle) {
			out = append(out, m)
		}
	}
	return out
}

// CurrentChat returns the active chat, if any.
func CurrentChat(st State) (domain.Chat, bool) {
	if st.ActiveChatID == "" {
		return domain.Chat{}, false
	}
	for _, c := range st.Chats {
		if c.ID == st.ActiveChatID {
			return c, true
		}
	}
	return domain.Chat{}, false
}

// CurrentChatBookmarks returns the active chat's loaded messages that are
// bookmarked, in message order.
func CurrentChatBookmarks(st State) []domain.Message {
	out := make([]domain.Message, 0)
	for _, m := range st.Messages {
		if st.Bookmarks[m.ID] {
			out = append(out, m)
		}
	}
	return out
}
