// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Bookmark
// model.
//
// The message_id index is deliberately not unique. Callers that need "at most
// one bookmark per message" must serialize check-then-write themselves.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-archive/internal/domain"
)

// CreateBookmark inserts a bookmark for messageID owned by chatID. The id is a
// ULID so bookmarks sort by creation time even by id.
func CreateBookmark(ctx context.Context, db *gorm.DB, messageID, chatID string, note *string) (*domain.Bookmark, error) {
	b := &domain.Bookmark{
		ID:        ulid.Make().String(),
		MessageID: messageID,
		ChatID:    chatID,
		CreatedAt: time.Now().UTC(),
		Note:      note,
	}
	if err := db.WithContext(ctx).Create(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

// DeleteBookmark removes a bookmark by id. Returns ErrNotFound if nothing was
// deleted.
func DeleteBookmark(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Bookmark{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBookmarksForChat returns a chat's bookmarks, newest first.
func ListBookmarksForChat(ctx context.Context, db *gorm.DB, chatID string) ([]domain.Bookmark, error) {
	out := make([]domain.Bookmark, 0)
	err := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// ListAllBookmarks returns every bookmark ordered by CreatedAt descending. Rows
// are read ascending through idx_bookmarks_created_at and reversed.
func ListAllBookmarks(ctx context.Context, db *gorm.DB) ([]domain.Bookmark, error) {
	out := make([]domain.Bookmark, 0)
	err := db.WithContext(ctx).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

// FindBookmarkByMessageID returns the first bookmark pointing at messageID, or
// (nil, nil) when there is none.
func FindBookmarkByMessageID(ctx context.Context, db *gorm.DB, messageID string) (*domain.Bookmark, error) {
	var b domain.Bookmark
	err := db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
