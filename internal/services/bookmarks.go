package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-chat-archive/internal/domain"
	"github.com/tbourn/go-chat-archive/internal/events"
	"github.com/tbourn/go-chat-archive/internal/repo"
)

// BookmarkedMessage pairs a bookmark with the message it points at.
type BookmarkedMessage struct {
	Bookmark domain.Bookmark `json:"bookmark"`
	Message  domain.Message  `json:"message"`
}

// ToggleBookmark removes the bookmark on messageID if there is one and creates
// it otherwise. It reports whether the message is bookmarked afterwards.
//
// chatID may be empty, in which case the message's own chat is used; when set
// it must match. Toggles are serialized per service, so two concurrent toggles
// of one message alternate instead of creating two bookmarks.
func (s *ArchiveService) ToggleBookmark(ctx context.Context, messageID, chatID string, note *string) (bool, error) {
	ctx, span := tracer().Start(ctx, "ToggleBookmark",
		trace.WithAttributes(
			attribute.String("message.id", messageID),
			attribute.String("chat.id", chatID),
		),
	)
	defer span.End()

	msg, err := s.Store.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, ErrMessageNotFound
		}
		return false, err
	}
	if chatID != "" && msg.ChatID != chatID {
		return false, ErrMessageNotFound
	}

	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()

	existing, err := s.Store.GetBookmarkByMessageID(ctx, messageID)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("lookup bookmark: %w", err)
	}

	now := existing == nil
	if existing != nil {
		if err := s.Store.RemoveBookmark(ctx, existing.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
			span.RecordError(err)
			return false, fmt.Errorf("remove bookmark: %w", err)
		}
		bookmarkToggles.WithLabelValues("removed").Inc()
	} else {
		if _, err := s.Store.AddBookmark(ctx, messageID, msg.ChatID, note); err != nil {
			span.RecordError(err)
			return false, fmt.Errorf("add bookmark: %w", err)
		}
		bookmarkToggles.WithLabelValues("added").Inc()
	}

	s.mu.Lock()
	s.lazyInit()
	s.bookmarks[messageID] = now
	s.bmGen++
	s.mu.Unlock()

	s.Log.Debug().Str("message_id", messageID).Str("chat_id", msg.ChatID).Bool("bookmarked", now).Msg("bookmark toggled")
	s.publish(ctx, events.BookmarksChanged, msg.ChatID, messageID)
	return now, nil
}

// IsMessageBookmarked answers from the bookmark cache, filling it from
// storage on a miss. A read overtaken by a toggle is returned but not cached.
func (s *ArchiveService) IsMessageBookmarked(ctx context.Context, messageID string) (bool, error) {
	ctx, span := tracer().Start(ctx, "IsMessageBookmarked", trace.WithAttributes(attribute.String("message.id", messageID)))
	defer span.End()

	s.mu.Lock()
	s.lazyInit()
	v, ok := s.bookmarks[messageID]
	token := s.bmGen
	s.mu.Unlock()
	if ok {
		cacheLookups.WithLabelValues("bookmarks", "hit").Inc()
		return v, nil
	}
	cacheLookups.WithLabelValues("bookmarks", "miss").Inc()

	b, err := s.Store.GetBookmarkByMessageID(ctx, messageID)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	s.mu.Lock()
	if s.bmGen == token {
		s.bookmarks[messageID] = b != nil
	}
	s.mu.Unlock()
	return b != nil, nil
}

// LoadBookmarks lists bookmarks, all of them or one chat's, newest first, and
// marks each bookmarked message in the cache.
func (s *ArchiveService) LoadBookmarks(ctx context.Context, chatID string) ([]domain.Bookmark, error) {
	ctx, span := tracer().Start(ctx, "LoadBookmarks", trace.WithAttributes(attribute.String("chat.id", chatID)))
	defer span.End()

	s.mu.Lock()
	s.lazyInit()
	token := s.bmGen
	s.mu.Unlock()

	var (
		out []domain.Bookmark
		err error
	)
	if chatID == "" {
		out, err = s.Store.GetAllBookmarks(ctx)
	} else {
		out, err = s.Store.GetBookmarksForChat(ctx, chatID)
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load bookmarks: %w", err)
	}

	s.mu.Lock()
	if s.bmGen == token {
		for _, b := range out {
			s.bookmarks[b.MessageID] = true
		}
	}
	s.mu.Unlock()
	s.publish(ctx, events.BookmarksChanged, chatID, "")
	return out, nil
}

// BookmarkedMessages resolves the bookmarks of LoadBookmarks to their
// messages. Bookmarks whose message no longer exists are skipped.
func (s *ArchiveService) BookmarkedMessages(ctx context.Context, chatID string) ([]BookmarkedMessage, error) {
	bs, err := s.LoadBookmarks(ctx, chatID)
	if err != nil {
		return nil, err
	}
	out := make([]BookmarkedMessage, 0, len(bs))
	for _, b := range bs {
		m, err := s.Store.GetMessage(ctx, b.MessageID)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, BookmarkedMessage{Bookmark: b, Message: *m})
	}
	return out, nil
}
