// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Chat model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only
// persistence and query composition.
//
// Error semantics:
//   - When a chat is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-archive/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// insertBatchSize keeps multi-row INSERTs under SQLite's bound-variable limit.
const insertBatchSize = 200

// MessageID builds the identifier of the message at index within chatID.
func MessageID(chatID string, index int) string {
	return fmt.Sprintf("%s-%d", chatID, index)
}

// CreateChatWithMessages inserts a chat and its messages in a single
// transaction. Messages receive MessageIndex 0..N-1 in slice order.
// LastMessageAt is the final message's timestamp, or the import time when
// msgs is empty. An empty id is replaced by a fresh UUID.
//
// Either everything is written or nothing is.
func CreateChatWithMessages(ctx context.Context, db *gorm.DB, id, name string, participants []string, msgs []domain.NewMessage, rawContent string) (*domain.Chat, error) {
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	last := now
	if n := len(msgs); n > 0 {
		last = msgs[n-1].Timestamp.UTC()
	}
	if participants == nil {
		participants = []string{}
	}

	c := &domain.Chat{
		ID:            id,
		Name:          name,
		Participants:  datatypes.NewJSONSlice(participants),
		CreatedAt:     now,
		LastMessageAt: last,
		MessageCount:  len(msgs),
		RawContent:    rawContent,
	}

	rows := make([]domain.Message, len(msgs))
	for i, m := range msgs {
		rows[i] = domain.Message{
			ID:           MessageID(id, i),
			ChatID:       id,
			Timestamp:    m.Timestamp.UTC(),
			Sender:       m.Sender,
			Content:      m.Content,
			MessageIndex: i,
		}
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListChatsByRecentActivity returns every chat ordered by LastMessageAt
// descending. The rows are read ascending through idx_chats_last_message and
// reversed, so ties keep the reverse of their ascending order.
func ListChatsByRecentActivity(ctx context.Context, db *gorm.DB) ([]domain.Chat, error) {
	var out []domain.Chat
	err := db.WithContext(ctx).
		Order("last_message_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

// GetChat fetches a single chat by its ID. If the record does not exist, it
// returns ErrNotFound.
func GetChat(ctx context.Context, db *gorm.DB, id string) (*domain.Chat, error) {
	var c domain.Chat
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CountChats returns the total number of stored chats.
func CountChats(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Chat{}).Count(&total).Error
	return total, err
}

// DeleteChatCascade removes a chat, its messages and its bookmarks in one
// transaction. It returns ErrNotFound when the chat does not exist, in which
// case nothing is touched.
func DeleteChatCascade(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&domain.Chat{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("chat_id = ?", id).Delete(&domain.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("chat_id = ?", id).Delete(&domain.Bookmark{}).Error
	})
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
