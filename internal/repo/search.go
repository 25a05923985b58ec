package repo

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-archive/internal/domain"
)

// SearchMessages returns messages whose content or sender contains query
// under Unicode case folding. With chatID set the walk is confined to that
// chat through idx_messages_chat_index; otherwise every message is scanned in
// chat then index order. At most maxSteps rows are read. A blank query
// matches nothing.
func SearchMessages(ctx context.Context, db *gorm.DB, query, chatID string, maxSteps int) ([]domain.Message, Walk, error) {
	out := make([]domain.Message, 0)
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(query))
	if needle == "" {
		return out, Walk{}, nil
	}

	q := db.WithContext(ctx).Model(&domain.Message{})
	if chatID != "" {
		q = q.Where("chat_id = ?", chatID).Order("message_index ASC")
	} else {
		q = q.Order("chat_id ASC, message_index ASC")
	}

	w, err := walkMessages(db, q, maxSteps, func(m domain.Message) bool {
		if strings.Contains(fold.String(m.Content), needle) ||
			strings.Contains(fold.String(m.Sender), needle) {
			out = append(out, m)
		}
		return true
	})
	if err != nil {
		return nil, w, err
	}
	return out, w, nil
}
