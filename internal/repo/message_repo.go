// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message model.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-chat-archive/internal/domain"
)

// Walk describes how a cursor walk ended.
type Walk struct {
	Steps  int  // rows read
	Capped bool // stopped at the ceiling with rows left unread
}

// walkMessages streams rows of q one at a time and hands each to visit until
// visit returns false or maxSteps rows have been read.
func walkMessages(db *gorm.DB, q *gorm.DB, maxSteps int, visit func(domain.Message) bool) (Walk, error) {
	var w Walk
	rows, err := q.Rows()
	if err != nil {
		return w, err
	}
	defer rows.Close()

	for rows.Next() {
		if w.Steps >= maxSteps {
			w.Capped = true
			break
		}
		w.Steps++
		var m domain.Message
		if err := db.ScanRows(rows, &m); err != nil {
			return w, err
		}
		if !visit(m) {
			break
		}
	}
	return w, rows.Err()
}

// ListMessagesPage walks idx_messages_chat_index over the key range
// [chatID, offset]..[chatID, +inf) and collects up to limit messages. Only
// collected rows count toward maxSteps, so any depth is reachable.
func ListMessagesPage(ctx context.Context, db *gorm.DB, chatID string, limit, offset, maxSteps int) ([]domain.Message, Walk, error) {
	out := make([]domain.Message, 0)
	if limit <= 0 {
		return out, Walk{}, nil
	}
	if offset < 0 {
		offset = 0
	}
	q := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("chat_id = ? AND message_index >= ?", chatID, offset).
		Order("message_index ASC")

	w, err := walkMessages(db, q, maxSteps, func(m domain.Message) bool {
		out = append(out, m)
		return len(out) < limit
	})
	if err != nil {
		return nil, w, err
	}
	return out, w, nil
}

// ListMessagesForChat returns every message of chatID in message index order.
func ListMessagesForChat(ctx context.Context, db *gorm.DB, chatID string) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("message_index ASC").
		Find(&out).Error
	return out, err
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, chatID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM messages WHERE chat_id = ?", chatID).
		Scan(&total).Error
	return total, err
}

// GetMessage fetches a message by ID.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
