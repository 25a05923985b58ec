// Package services – ArchiveService
//
// ArchiveService is the only collaborator of the HTTP and CLI layers. It wraps
// the storage engine with a message cache (chat id → loaded messages), a
// bookmark cache (message id → bookmarked), in-flight load de-duplication and
// the observable State a display layer renders from.
//
// Every mutation of State is followed by an events.Event on the configured
// Bus. Storage failures are caught at the boundary of each public method:
// list loading degrades to an empty list, chat switching rolls the active chat
// back and returns the error, everything else propagates.
//
// Observability: all public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/tbourn/go-chat-archive/internal/domain"
	"github.com/tbourn/go-chat-archive/internal/events"
	"github.com/tbourn/go-chat-archive/internal/parser"
	"github.com/tbourn/go-chat-archive/internal/repo"
)

const (
	// DefaultLoadTimeout bounds a single message load.
	DefaultLoadTimeout = 8 * time.Second
	// DefaultMessageLoadLimit is the page size of one storage read during a load.
	DefaultMessageLoadLimit = 10000
)

// Store is the storage contract required by ArchiveService. *repo.Store
// implements it; missing records are reported as repo.ErrNotFound.
type Store interface {
	StoreChat(ctx context.Context, id, name string, participants []string, msgs []domain.NewMessage, rawContent string) (*domain.Chat, error)
	GetAllChats(ctx context.Context) ([]domain.Chat, error)
	GetChat(ctx context.Context, id string) (*domain.Chat, error)
	DeleteChat(ctx context.Context, id string) error

	GetMessages(ctx context.Context, chatID string, limit, offset int) ([]domain.Message, error)
	GetAllMessagesForChat(ctx context.Context, chatID string) ([]domain.Message, error)
	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	SearchMessages(ctx context.Context, query, chatID string) ([]domain.Message, error)

	AddBookmark(ctx context.Context, messageID, chatID string, note *string) (*domain.Bookmark, error)
	RemoveBookmark(ctx context.Context, id string) error
	GetBookmarksForChat(ctx context.Context, chatID string) ([]domain.Bookmark, error)
	GetAllBookmarks(ctx context.Context) ([]domain.Bookmark, error)
	GetBookmarkByMessageID(ctx context.Context, messageID string) (*domain.Bookmark, error)

	LookupImport(ctx context.Context, clientID, key string) (string, error)
	RecordImport(ctx context.Context, clientID, key, chatID string, ttl time.Duration) error
}

// State is the observable archive state.
type State struct {
	Chats        []domain.Chat    `json:"chats"`
	ActiveChatID string           `json:"active_chat_id"`
	Messages     []domain.Message `json:"messages"`
	Bookmarks    map[string]bool  `json:"bookmarks"`
	Loading      bool             `json:"loading"`
	SearchQuery  string           `json:"search_query"`
}

// NewChat is the input of AddChat.
type NewChat struct {
	Name         string
	Participants []string
	Messages     []domain.NewMessage
	RawContent   string
}

// ArchiveService coordinates caching, loading and derived state.
type ArchiveService struct {
	Store  Store
	Parser *parser.Parser
	Bus    events.Bus
	Log    zerolog.Logger

	// LoadTimeout bounds each message load (DefaultLoadTimeout when zero).
	LoadTimeout time.Duration
	// MessageLoadLimit is the page size loads read with (DefaultMessageLoadLimit
	// when zero). A load reads every message of the chat.
	MessageLoadLimit int

	mu        sync.Mutex
	messages  map[string][]domain.Message
	bookmarks map[string]bool
	// bmGen moves on every bookmark cache write not backed by a read, so a
	// read that started earlier does not overwrite it.
	bmGen     uint64
	gen       map[string]uint64
	inflight  map[string]int
	state     State

	loads    singleflight.Group
	switches singleflight.Group
	toggleMu sync.Mutex
}

// NewArchiveService constructs an ArchiveService. A nil bus gets a LocalBus.
func NewArchiveService(store Store, p *parser.Parser, bus events.Bus, log zerolog.Logger) *ArchiveService {
	if p == nil {
		p = parser.New()
	}
	if bus == nil {
		bus = events.NewLocalBus(CountDroppedEvent)
	}
	return &ArchiveService{
		Store:            store,
		Parser:           p,
		Bus:              bus,
		Log:              log,
		LoadTimeout:      DefaultLoadTimeout,
		MessageLoadLimit: DefaultMessageLoadLimit,
	}
}

func tracer() trace.Tracer { return otel.Tracer("services/ArchiveService") }

// lazyInit must be called with mu held.
func (s *ArchiveService) lazyInit() {
	if s.messages == nil {
		s.messages = map[string][]domain.Message{}
		s.bookmarks = map[string]bool{}
		s.gen = map[string]uint64{}
		s.inflight = map[string]int{}
	}
}

func (s *ArchiveService) publish(ctx context.Context, typ events.Type, chatID, messageID string) {
	if s.Bus == nil {
		return
	}
	ev := events.Event{Type: typ, ChatID: chatID, MessageID: messageID, At: time.Now().UTC()}
	if err := s.Bus.Publish(ctx, ev); err != nil {
		s.Log.Warn().Err(err).Str("event", string(typ)).Msg("publish event failed")
	}
}

// State returns a snapshot of the observable state.
func (s *ArchiveService) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lazyInit()
	st := s.state
	st.Chats = slices.Clone(s.state.Chats)
	st.Messages = slices.Clone(s.state.Messages)
	st.Bookmarks = make(map[string]bool, len(s.bookmarks))
	for k, v := range s.bookmarks {
		st.Bookmarks[k] = v
	}
	return st
}

// LoadChats refreshes the chat list. On storage failure it logs the error and
// degrades to an empty list.
func (s *ArchiveService) LoadChats(ctx context.Context) []domain.Chat {
	ctx, span := tracer().Start(ctx, "LoadChats")
	defer span.End()

	chats := s.refreshChats(ctx)
	s.publish(ctx, events.ChatsChanged, "", "")
	return chats
}

func (s *ArchiveService) refreshChats(ctx context.Context) []domain.Chat {
	chats, err := s.Store.GetAllChats(ctx)
	if err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
		s.Log.Error().Err(err).Msg("load chats failed")
		chats = []domain.Chat{}
	}

	s.mu.Lock()
	s.lazyInit()
	s.state.Chats = chats
	s.mu.Unlock()
	return slices.Clone(chats)
}

// AddChat stores a chat with its messages and refreshes the chat list once the
// write has committed.
func (s *ArchiveService) AddChat(ctx context.Context, in NewChat) (*domain.Chat, error) {
	ctx, span := tracer().Start(ctx, "AddChat",
		trace.WithAttributes(
			attribute.String("chat.name", in.Name),
			attribute.Int("messages", len(in.Messages)),
		),
	)
	defer span.End()

	chat, err := s.Store.StoreChat(ctx, "", in.Name, in.Participants, in.Messages, in.RawContent)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("store chat: %w", err)
	}
	s.Log.Info().Str("chat_id", chat.ID).Int("messages", chat.MessageCount).Msg("chat stored")
	s.LoadChats(ctx)
	return chat, nil
}

// ImportTranscript validates, parses and stores a raw transcript.
func (s *ArchiveService) ImportTranscript(ctx context.Context, raw string) (*domain.Chat, error) {
	ctx, span := tracer().Start(ctx, "ImportTranscript",
		trace.WithAttributes(attribute.Int("bytes", len(raw))),
	)
	defer span.End()

	if v := parser.Validate(raw); !v.IsValid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTranscript, strings.Join(v.Errors, "; "))
	}
	res := s.Parser.Parse(raw)
	msgs := make([]domain.NewMessage, len(res.Messages))
	for i, m := range res.Messages {
		msgs[i] = domain.NewMessage{Timestamp: m.Timestamp, Sender: m.Sender, Content: m.Content}
	}
	return s.AddChat(ctx, NewChat{
		Name:         res.Metadata.Name,
		Participants: res.Metadata.Participants,
		Messages:     msgs,
		RawContent:   raw,
	})
}

// ImportTranscriptOnce is ImportTranscript keyed by (clientID, key): a retry
// with the same key within ttl returns the chat created by the first call and
// replayed=true.
func (s *ArchiveService) ImportTranscriptOnce(ctx context.Context, clientID, key, raw string, ttl time.Duration) (chat *domain.Chat, replayed bool, err error) {
	ctx, span := tracer().Start(ctx, "ImportTranscriptOnce",
		trace.WithAttributes(attribute.String("client.id", clientID)),
	)
	defer span.End()

	if strings.TrimSpace(key) == "" {
		chat, err = s.ImportTranscript(ctx, raw)
		return chat, false, err
	}

	id, err := s.Store.LookupImport(ctx, clientID, key)
	switch {
	case err == nil:
		c, gerr := s.Store.GetChat(ctx, id)
		if gerr == nil {
			return c, true, nil
		}
		if !errors.Is(gerr, repo.ErrNotFound) {
			return nil, false, gerr
		}
		// The recorded chat was deleted since; import it again.
	case !errors.Is(err, repo.ErrNotFound):
		return nil, false, err
	}

	chat, err = s.ImportTranscript(ctx, raw)
	if err != nil {
		return nil, false, err
	}
	if rerr := s.Store.RecordImport(ctx, clientID, key, chat.ID, ttl); rerr != nil {
		s.Log.Warn().Err(rerr).Str("chat_id", chat.ID).Msg("record import key failed")
	}
	return chat, false, nil
}

// GetChat returns one chat.
func (s *ArchiveService) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	ctx, span := tracer().Start(ctx, "GetChat", trace.WithAttributes(attribute.String("chat.id", chatID)))
	defer span.End()

	c, err := s.Store.GetChat(ctx, chatID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	return c, err
}

// ExportChat returns the stored transcript of a chat, byte for byte.
func (s *ArchiveService) ExportChat(ctx context.Context, chatID string) (string, error) {
	ctx, span := tracer().Start(ctx, "ExportChat", trace.WithAttributes(attribute.String("chat.id", chatID)))
	defer span.End()

	c, err := s.Store.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrChatNotFound
		}
		span.RecordError(err)
		return "", err
	}
	return c.RawContent, nil
}

// Search finds messages matching query, across all chats or within chatID.
func (s *ArchiveService) Search(ctx context.Context, query, chatID string) ([]domain.Message, error) {
	ctx, span := tracer().Start(ctx, "Search",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.Int("query.len", len(query)),
		),
	)
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	out, err := s.Store.SearchMessages(ctx, query, chatID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("search messages: %w", err)
	}
	return out, nil
}

// SetSearchQuery updates the query that FilteredMessages applies.
func (s *ArchiveService) SetSearchQuery(ctx context.Context, q string) {
	s.mu.Lock()
	s.lazyInit()
	s.state.SearchQuery = q
	s.mu.Unlock()
	s.publish(ctx, events.SearchChanged, "", "")
}

// DeleteChat removes a chat and everything it owns, then drops the chat's
// cached messages and the whole bookmark cache. Loads of that chat still in
// flight are discarded when they finish.
func (s *ArchiveService) DeleteChat(ctx context.Context, chatID string) error {
	ctx, span := tracer().Start(ctx, "DeleteChat", trace.WithAttributes(attribute.String("chat.id", chatID)))
	defer span.End()

	if err := s.Store.DeleteChat(ctx, chatID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrChatNotFound
		}
		span.RecordError(err)
		return fmt.Errorf("delete chat: %w", err)
	}

	s.forgetChat(chatID)
	s.Log.Info().Str("chat_id", chatID).Msg("chat deleted")
	s.publish(ctx, events.ChatDeleted, chatID, "")
	return nil
}

// forgetChat drops every cached trace of chatID. Loads of that chat still in
// flight are discarded when they finish.
func (s *ArchiveService) forgetChat(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lazyInit()
	delete(s.messages, chatID)
	s.bookmarks = map[string]bool{}
	s.bmGen++
	s.gen[chatID]++
	if s.state.ActiveChatID == chatID {
		s.state.ActiveChatID = ""
		s.state.Messages = nil
	}
	kept := s.state.Chats[:0:0]
	for _, c := range s.state.Chats {
		if c.ID != chatID {
			kept = append(kept, c)
		}
	}
	s.state.Chats = kept
}
