// Package repo implements the storage engine for the archive, backed by GORM.
// This file provides Store, the explicitly constructed handle that owns the
// database connection and exposes the chat, message and bookmark operations.
//
// Every public Store method lazily opens the database on first use. A failed
// open is returned to the caller as-is; the next call tries again, but the
// store itself never retries.
//
// The package-level functions in the sibling files take a *gorm.DB so they
// can run inside a transaction opened by the caller; Store methods are thin
// wrappers that resolve the handle first.
package repo

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-archive/internal/domain"
)

const (
	// DefaultOpenTimeout bounds opening and migrating the database.
	DefaultOpenTimeout = 10 * time.Second
	// DefaultMaxCursorSteps caps every cursor walk regardless of its limit.
	DefaultMaxCursorSteps = 10000
)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithOpenTimeout sets the open deadline.
func WithOpenTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.openTimeout = d
		}
	}
}

// WithMaxCursorSteps sets the hard iteration ceiling for cursor walks.
func WithMaxCursorSteps(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.maxSteps = n
		}
	}
}

// WithTracing installs the GORM OpenTelemetry plugin on open.
func WithTracing(on bool) StoreOption {
	return func(s *Store) { s.tracing = on }
}

// WithLogger sets the logger used for storage warnings.
func WithLogger(l zerolog.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

// Store owns the archive database.
type Store struct {
	path        string
	openTimeout time.Duration
	maxSteps    int
	tracing     bool
	log         zerolog.Logger

	mu sync.Mutex
	db *gorm.DB
}

// NewStore returns an unopened Store for the SQLite database at path.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path:        path,
		openTimeout: DefaultOpenTimeout,
		maxSteps:    DefaultMaxCursorSteps,
		log:         zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewStoreFromDB wraps an already opened and migrated handle.
func NewStoreFromDB(db *gorm.DB, opts ...StoreOption) *Store {
	s := NewStore("", opts...)
	s.db = db
	return s
}

// Open opens the database if it is not open yet.
func (s *Store) Open(ctx context.Context) error {
	_, err := s.handle(ctx)
	return err
}

// Close releases the connection. The Store may be reopened afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	s.db = nil
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB returns the open handle, opening it first if needed.
func (s *Store) DB(ctx context.Context) (*gorm.DB, error) { return s.handle(ctx) }

// MaxCursorSteps reports the configured iteration ceiling.
func (s *Store) MaxCursorSteps() int { return s.maxSteps }

func (s *Store) handle(ctx context.Context) (*gorm.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	octx, cancel := context.WithTimeout(ctx, s.openTimeout)
	defer cancel()
	db, err := OpenSQLite(octx, s.path, OpenOptions{Tracing: s.tracing})
	if err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("store open failed")
		return nil, err
	}
	s.db = db
	return db, nil
}

// StoreChat writes a chat and all of its messages in one transaction.
func (s *Store) StoreChat(ctx context.Context, id, name string, participants []string, msgs []domain.NewMessage, rawContent string) (*domain.Chat, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	return CreateChatWithMessages(ctx, db, id, name, participants, msgs, rawContent)
}

// GetAllChats returns every chat, most recent activity first.
func (s *Store) GetAllChats(ctx context.Context) ([]domain.Chat, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	return ListChatsByRecentActivity(ctx, db)
}

// GetChat fetches one chat by id, or ErrNotFound.
func (s *Store) GetChat(ctx context.Context, id string) (*domain.Chat, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	return GetChat(ctx, db, id)
}

// DeleteChat removes a chat with its messages and bookmarks atomically.
func (s *Store) DeleteChat(ctx context.Context, id string) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	return DeleteChatCascade(ctx, db, id)
}

// GetMessages returns up to limit messages of a chat starting at offset, in
// message index order.
func (s *Store) GetMessages(ctx context.Context, chatID string, limit, offset int) ([]domain.Message, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	out, w, err := ListMessagesPage(ctx, db, chatID, limit, offset, s.maxSteps)
	s.warnCeiling(w, "get_messages", chatID)
	return out, err
}

// GetAllMessagesForChat returns every message of a chat through the by-chat
// index.
func (s *Store) GetAllMessagesForChat(ctx context.Context, chatID string) ([]domain.Message, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	return ListMessagesForChat(ctx, db, chatID)
}

// CountMessages counts the stored messages of a chat.
func (s *Store) CountMessages(ctx context.Context, chatID string) (int64, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return 0, err
	}
	return CountMessages(ctx, db, chatID)
}

// GetMessage fetches one message by id, or ErrNotFound.
func (s *Store) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	return GetMessage(ctx, db, id)
}

// SearchMessages scans messages (all, or one chat's when chatID is set) for a
// case-insensitive substring match on content or sender.
func (s *Store) SearchMessages(ctx context.Context, query, chatID string) ([]domain.Message, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	out, w, err := SearchMessages(ctx, db, query, chatID, s.maxSteps)
	s.warnCeiling(w, "search_messages", chatID)
	return out, err
}

// AddBookmark creates a bookmark for a message.
func (s *Store) AddBookmark(ctx context.Context, messageID, chatID string, note *string) (*domain.Bookmark, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	return CreateBookmark(ctx, db, messageID, chatID, note)
}

// RemoveBookmark deletes a bookmark by id.
func (s *Store) RemoveBookmark(ctx context.Context, id string) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	return DeleteBookmark(ctx, db, id)
}

// GetBookmarksForChat lists a chat's bookmarks.
func (s *Store) GetBookmarksForChat(ctx context.Context, chatID string) ([]domain.Bookmark, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	return ListBookmarksForChat(ctx, db, chatID)
}

// GetAllBookmarks lists every bookmark, newest first.
func (s *Store) GetAllBookmarks(ctx context.Context) ([]domain.Bookmark, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	return ListAllBookmarks(ctx, db)
}

// IsMessageBookmarked reports whether any bookmark points at messageID.
func (s *Store) IsMessageBookmarked(ctx context.Context, messageID string) (bool, error) {
	b, err := s.GetBookmarkByMessageID(ctx, messageID)
	if err != nil {
		return false, err
	}
	return b != nil, nil
}

// GetBookmarkByMessageID returns the bookmark for messageID, or nil.
func (s *Store) GetBookmarkByMessageID(ctx context.Context, messageID string) (*domain.Bookmark, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	return FindBookmarkByMessageID(ctx, db, messageID)
}

// ChatsStats returns the chat count and newest activity time.
func (s *Store) ChatsStats(ctx context.Context) (int64, *time.Time, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return 0, nil, err
	}
	return ChatsStats(ctx, db)
}

// LookupImport returns the chat id recorded for a completed import keyed by
// (clientID, key), or ErrNotFound.
func (s *Store) LookupImport(ctx context.Context, clientID, key string) (string, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return "", err
	}
	rec, err := GetIdempotency(ctx, db, clientID, key, time.Now())
	if err != nil {
		return "", err
	}
	return rec.ChatID, nil
}

// RecordImport remembers chatID as the outcome of (clientID, key) for ttl.
// Expired records are purged first.
func (s *Store) RecordImport(ctx context.Context, clientID, key, chatID string, ttl time.Duration) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	if _, err := PurgeExpiredIdempotency(ctx, db, time.Now()); err != nil {
		return err
	}
	_, err = CreateIdempotency(ctx, db, clientID, key, chatID, 201, ttl)
	return err
}

func (s *Store) warnCeiling(w Walk, op, chatID string) {
	if w.Capped {
		s.log.Warn().
			Str("op", op).
			Str("chat_id", chatID).
			Int("max_steps", s.maxSteps).
			Msg("cursor stopped at iteration ceiling")
	}
}
