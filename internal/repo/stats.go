// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the aggregate query used for conditional
// responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-chat-archive/internal/domain"
)

// ChatsStats returns the total number of chats and the greatest LastMessageAt
// among them. When there are no chats, the count is 0 and the time is nil.
func ChatsStats(ctx context.Context, db *gorm.DB) (count int64, maxLastMessageAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Chat{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Avoid MAX() -> TEXT in SQLite.
	var row struct {
		LastMessageAt time.Time
	}
	if err = q.Select("last_message_at").Order("last_message_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.LastMessageAt, nil
}
