// Package domain defines the persistence models for imported chats, their
// messages, and user bookmarks. These types are mapped with GORM and form the
// core data layer of the archive.
//
// Relationships are by id only. No model embeds another; the repository
// resolves chat → messages and chat → bookmarks through indexed lookups and
// performs cascade deletes explicitly inside a transaction.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// SystemSender is the reserved sender of transcript-level notices
// (encryption banners, "X created group", "X added Y"). It is never a
// participant.
const SystemSender = "System"

// Chat represents one imported transcript.
//
// Fields:
//   - ID: opaque UUID primary key.
//   - Name: derived display name (see parser display-name policy).
//   - Participants: sender names seen in the transcript, excluding "System".
//   - CreatedAt: import time.
//   - LastMessageAt: timestamp of the final message, or import time if empty.
//   - MessageCount: number of Message rows owned by this chat.
//   - RawContent: the original transcript text, immutable once stored.
type Chat struct {
	ID            string                      `json:"id"              gorm:"type:varchar(64);primaryKey"`
	Name          string                      `json:"name"            gorm:"type:varchar(255);not null;index:idx_chats_name"`
	Participants  datatypes.JSONSlice[string] `json:"participants"`
	CreatedAt     time.Time                   `json:"created_at"      gorm:"not null;index:idx_chats_created_at"`
	LastMessageAt time.Time                   `json:"last_message_at" gorm:"not null;index:idx_chats_last_message"`
	MessageCount  int                         `json:"message_count"   gorm:"not null;default:0"`
	RawContent    string                      `json:"-"               gorm:"type:text;not null"`
}

// TableName returns the database table name for Chat.
func (Chat) TableName() string { return "chats" }

// Message represents one utterance within a chat.
//
// MessageIndex is the authoritative ordering key: wall-clock timestamps in
// exported transcripts are neither unique nor monotonic. For a fixed ChatID
// the indexes form the dense sequence 0..N-1 in parse order, and ID is always
// "<ChatID>-<MessageIndex>".
type Message struct {
	ID           string    `json:"id"            gorm:"type:varchar(96);primaryKey"`
	ChatID       string    `json:"chat_id"       gorm:"type:varchar(64);not null;index:idx_messages_chat;index:idx_messages_chat_index,priority:1"`
	Timestamp    time.Time `json:"timestamp"     gorm:"not null;index:idx_messages_timestamp"`
	Sender       string    `json:"sender"        gorm:"type:varchar(255);not null;index:idx_messages_sender"`
	Content      string    `json:"content"       gorm:"type:text;not null"`
	MessageIndex int       `json:"message_index" gorm:"not null;index:idx_messages_chat_index,priority:2"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// IsSystem reports whether the message is a transcript-level notice.
func (m Message) IsSystem() bool { return m.Sender == SystemSender }

// Bookmark is a user annotation pointing at one message.
//
// ChatID is a denormalized copy of the message's owning chat so bookmarks can
// be listed and cascade-deleted per chat without dereferencing messages.
// The message_id index is not unique: duplicate prevention is the service
// layer's job (see services.ArchiveService.ToggleBookmark).
type Bookmark struct {
	ID        string    `json:"id"         gorm:"type:varchar(32);primaryKey"`
	MessageID string    `json:"message_id" gorm:"type:varchar(96);not null;index:idx_bookmarks_message_id"`
	ChatID    string    `json:"chat_id"    gorm:"type:varchar(64);not null;index:idx_bookmarks_chat"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index:idx_bookmarks_created_at"`
	Note      *string   `json:"note,omitempty" gorm:"type:text"`
}

// TableName returns the database table name for Bookmark.
func (Bookmark) TableName() string { return "bookmarks" }

// NewMessage is a parsed utterance waiting to be persisted. Its position in
// the slice handed to the store becomes its MessageIndex.
type NewMessage struct {
	Timestamp time.Time
	Sender    string
	Content   string
}

// SchemaMeta records the persisted schema version. There is exactly one row
// (ID = 1).
type SchemaMeta struct {
	ID        int       `gorm:"primaryKey"`
	Version   int       `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the database table name for SchemaMeta.
func (SchemaMeta) TableName() string { return "schema_meta" }
