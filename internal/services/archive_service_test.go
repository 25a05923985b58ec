package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-chat-archive/internal/domain"
	"github.com/tbourn/go-chat-archive/internal/events"
	"github.com/tbourn/go-chat-archive/internal/parser"
	"github.com/tbourn/go-chat-archive/internal/repo"
)

// ---------- test helpers ----------

func newTestStore(t *testing.T) *repo.Store {
	t.Helper()
	s := repo.NewStore(filepath.Join(t.TempDir(), "svc.db"))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// hookStore wraps a real store and lets tests intercept message reads.
type hookStore struct {
	Store
	reads       int32
	getMessages func(ctx context.Context, chatID string, limit, offset int) ([]domain.Message, error)
	getAllChats func(ctx context.Context) ([]domain.Chat, error)
	getBookmark func(ctx context.Context, messageID string) (*domain.Bookmark, error)
}

func (h *hookStore) GetMessages(ctx context.Context, chatID string, limit, offset int) ([]domain.Message, error) {
	atomic.AddInt32(&h.reads, 1)
	if h.getMessages != nil {
		return h.getMessages(ctx, chatID, limit, offset)
	}
	return h.Store.GetMessages(ctx, chatID, limit, offset)
}

func (h *hookStore) GetAllChats(ctx context.Context) ([]domain.Chat, error) {
	if h.getAllChats != nil {
		return h.getAllChats(ctx)
	}
	return h.Store.GetAllChats(ctx)
}

func (h *hookStore) GetBookmarkByMessageID(ctx context.Context, messageID string) (*domain.Bookmark, error) {
	if h.getBookmark != nil {
		return h.getBookmark(ctx, messageID)
	}
	return h.Store.GetBookmarkByMessageID(ctx, messageID)
}

func (h *hookStore) Reads() int { return int(atomic.LoadInt32(&h.reads)) }

func newSvc(t *testing.T) (*ArchiveService, *hookStore) {
	t.Helper()
	hs := &hookStore{Store: newTestStore(t)}
	p := parser.New(parser.WithLocation(time.UTC))
	return NewArchiveService(hs, p, events.NewLocalBus(nil), zerolog.Nop()), hs
}

func seedChat(t *testing.T, s *ArchiveService, senders ...string) *domain.Chat {
	t.Helper()
	base := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	msgs := make([]domain.NewMessage, len(senders))
	for i, snd := range senders {
		msgs[i] = domain.NewMessage{Timestamp: base.Add(time.Duration(i) * time.Hour), Sender: snd, Content: fmt.Sprintf("msg %d", i)}
	}
	c, err := s.AddChat(context.Background(), NewChat{Name: "seed", Participants: []string{"A", "B"}, Messages: msgs, RawContent: "raw"})
	if err != nil {
		t.Fatalf("AddChat: %v", err)
	}
	return c
}

const transcript = "2/24/24, 21:56 - Alice: Hello there!\n2/24/24, 21:59 - ~ Bob: Hi! How are you?\nsecond line"

// ---------- LoadMessages ----------

func TestLoadMessages_CacheCoherenceAndForceRefresh(t *testing.T) {
	ctx := context.Background()
	s, hs := newSvc(t)
	chat := seedChat(t, s, "A", "B", "A")

	first, err := s.LoadMessages(ctx, chat.ID, false)
	if err != nil || len(first) != 3 {
		t.Fatalf("first load: %v len=%d", err, len(first))
	}
	hits := testutil.ToFloat64(cacheLookups.WithLabelValues("messages", "hit"))

	second, err := s.LoadMessages(ctx, chat.ID, false)
	if err != nil || len(second) != 3 || second[2].ID != first[2].ID {
		t.Fatalf("cached load: %v %+v", err, second)
	}
	if hs.Reads() != 1 {
		t.Fatalf("cached load touched storage: reads=%d", hs.Reads())
	}
	if got := testutil.ToFloat64(cacheLookups.WithLabelValues("messages", "hit")); got != hits+1 {
		t.Fatalf("cache hit counter = %v; want %v", got, hits+1)
	}

	if _, err := s.LoadMessages(ctx, chat.ID, true); err != nil {
		t.Fatalf("forced load: %v", err)
	}
	if hs.Reads() != 2 {
		t.Fatalf("force refresh should re-read: reads=%d", hs.Reads())
	}
}

func TestLoadMessages_ConcurrentLoadsShareOneRead(t *testing.T) {
	ctx := context.Background()
	s, hs := newSvc(t)
	chat := seedChat(t, s, "A", "B")

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	inner := hs.Store
	hs.getMessages = func(ctx context.Context, chatID string, limit, offset int) ([]domain.Message, error) {
		once.Do(func() { close(entered) })
		<-release
		return inner.GetMessages(ctx, chatID, limit, offset)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	load := func() {
		defer wg.Done()
		msgs, err := s.LoadMessages(ctx, chat.ID, false)
		if err == nil && len(msgs) != 2 {
			err = fmt.Errorf("len=%d", len(msgs))
		}
		errs <- err
	}
	wg.Add(1)
	go load()
	<-entered
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go load()
	}
	time.Sleep(50 * time.Millisecond)
	if !s.State().Loading {
		t.Fatalf("state should report loading while a read is in flight")
	}
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	if hs.Reads() != 1 {
		t.Fatalf("concurrent loads should coalesce: reads=%d", hs.Reads())
	}
	if s.State().Loading {
		t.Fatalf("loading flag should clear")
	}
}

func TestLoadMessages_TimeoutEvictsCache(t *testing.T) {
	ctx := context.Background()
	s, hs := newSvc(t)
	s.LoadTimeout = 30 * time.Millisecond
	chat := seedChat(t, s, "A")

	var slow atomic.Bool
	inner := hs.Store
	hs.getMessages = func(ctx context.Context, chatID string, limit, offset int) ([]domain.Message, error) {
		if !slow.Load() {
			return inner.GetMessages(ctx, chatID, limit, offset)
		}
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		return []domain.Message{{ID: "late"}}, nil
	}
	if _, err := s.LoadMessages(ctx, chat.ID, false); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	slow.Store(true)
	before := testutil.ToFloat64(loadFailures.WithLabelValues("timeout"))
	_, err := s.LoadMessages(ctx, chat.ID, true)
	if !errors.Is(err, ErrLoadTimeout) {
		t.Fatalf("expected ErrLoadTimeout, got %v", err)
	}
	if got := testutil.ToFloat64(loadFailures.WithLabelValues("timeout")); got != before+1 {
		t.Fatalf("timeout counter = %v; want %v", got, before+1)
	}

	// The stale list must be gone: the next plain load reads storage again.
	slow.Store(false)
	reads := hs.Reads()
	msgs, err := s.LoadMessages(ctx, chat.ID, false)
	if err != nil || len(msgs) != 1 || msgs[0].ID == "late" {
		t.Fatalf("reload: %v %+v", err, msgs)
	}
	if hs.Reads() != reads+1 {
		t.Fatalf("expected a storage read after eviction")
	}
}

func TestLoadMessages_ErrorIsWrapped(t *testing.T) {
	s, hs := newSvc(t)
	boom := errors.New("disk on fire")
	hs.getMessages = func(context.Context, string, int, int) ([]domain.Message, error) { return nil, boom }

	_, err := s.LoadMessages(context.Background(), "c", false)
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "load messages") {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestLoadMessages_ReadsPastLoadLimit(t *testing.T) {
	s, hs := newSvc(t)
	s.MessageLoadLimit = 2
	chat := seedChat(t, s, "A", "B", "A", "B", "A")

	msgs, err := s.LoadMessages(context.Background(), chat.ID, false)
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	if len(msgs) != 5 || msgs[4].MessageIndex != 4 {
		t.Fatalf("len=%d; want every message of the chat", len(msgs))
	}
	if hs.Reads() != 3 {
		t.Fatalf("reads = %d; want 3 pages of 2", hs.Reads())
	}
}

func TestLoadMessages_DeleteDuringLoadDiscardsResult(t *testing.T) {
	ctx := context.Background()
	s, hs := newSvc(t)
	chat := seedChat(t, s, "A", "B")

	entered := make(chan struct{})
	release := make(chan struct{})
	hs.getMessages = func(ctx context.Context, chatID string, limit, offset int) ([]domain.Message, error) {
		close(entered)
		<-release
		return []domain.Message{{ID: chatID + "-0", ChatID: chatID}}, nil
	}

	before := testutil.ToFloat64(staleDiscards)
	done := make(chan error, 1)
	go func() {
		_, err := s.LoadMessages(ctx, chat.ID, false)
		done <- err
	}()
	<-entered
	if err := s.DeleteChat(ctx, chat.ID); err != nil {
		t.Fatalf("DeleteChat: %v", err)
	}
	close(release)

	if err := <-done; !errors.Is(err, ErrStaleLoad) {
		t.Fatalf("expected ErrStaleLoad, got %v", err)
	}
	if got := testutil.ToFloat64(staleDiscards); got != before+1 {
		t.Fatalf("stale counter = %v; want %v", got, before+1)
	}
	s.mu.Lock()
	_, cached := s.messages[chat.ID]
	s.mu.Unlock()
	if cached {
		t.Fatalf("late result was merged into the cache")
	}
}

func TestLoadMessages_CallerCancelDoesNotAbortSharedLoad(t *testing.T) {
	s, hs := newSvc(t)
	chat := seedChat(t, s, "A")

	release := make(chan struct{})
	inner := hs.Store
	hs.getMessages = func(ctx context.Context, chatID string, limit, offset int) ([]domain.Message, error) {
		<-release
		return inner.GetMessages(ctx, chatID, limit, offset)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.LoadMessages(ctx, chat.ID, false)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	close(release)

	// The shared read completes and fills the cache.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		_, ok := s.messages[chat.ID]
		s.mu.Unlock()
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("shared load never populated the cache")
}

// ---------- SwitchToChat ----------

func TestSwitchToChat_LoadsAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, hs := newSvc(t)
	chat := seedChat(t, s, "A", "B")

	if err := s.SwitchToChat(ctx, chat.ID); err != nil {
		t.Fatalf("SwitchToChat: %v", err)
	}
	st := s.State()
	if st.ActiveChatID != chat.ID || len(st.Messages) != 2 {
		t.Fatalf("unexpected state: %+v", st)
	}
	reads := hs.Reads()
	if err := s.SwitchToChat(ctx, chat.ID); err != nil {
		t.Fatalf("second switch: %v", err)
	}
	if hs.Reads() != reads {
		t.Fatalf("switching to the active chat should be a no-op")
	}
	if c, ok := CurrentChat(s.State()); !ok || c.ID != chat.ID {
		t.Fatalf("CurrentChat = %+v, %v", c, ok)
	}
}

func TestSwitchToChat_MissingChatRollsBack(t *testing.T) {
	ctx := context.Background()
	s, _ := newSvc(t)
	chat := seedChat(t, s, "A")
	_ = s.SwitchToChat(ctx, chat.ID)

	if err := s.SwitchToChat(ctx, "nope"); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
	if st := s.State(); st.ActiveChatID != "" || len(st.Messages) != 0 {
		t.Fatalf("active chat not rolled back: %+v", st)
	}
}

func TestSwitchToChat_LoadFailureRollsBack(t *testing.T) {
	s, hs := newSvc(t)
	chat := seedChat(t, s, "A")
	hs.getMessages = func(context.Context, string, int, int) ([]domain.Message, error) {
		return nil, errors.New("io")
	}
	if err := s.SwitchToChat(context.Background(), chat.ID); err == nil {
		t.Fatalf("expected load error")
	}
	if st := s.State(); st.ActiveChatID != "" {
		t.Fatalf("active chat should be empty after failed switch, got %q", st.ActiveChatID)
	}
}

// ---------- chats, import, export ----------

func TestLoadChats_DegradesToEmpty(t *testing.T) {
	s, hs := newSvc(t)
	seedChat(t, s, "A")
	hs.getAllChats = func(context.Context) ([]domain.Chat, error) { return nil, errors.New("locked") }

	chats := s.LoadChats(context.Background())
	if chats == nil || len(chats) != 0 {
		t.Fatalf("expected empty list, got %v", chats)
	}
	if len(s.State().Chats) != 0 {
		t.Fatalf("state should hold the degraded empty list")
	}
}

func TestImportTranscript_ParsesStoresAndExportsVerbatim(t *testing.T) {
	ctx := context.Background()
	s, _ := newSvc(t)

	chat, err := s.ImportTranscript(ctx, transcript)
	if err != nil {
		t.Fatalf("ImportTranscript: %v", err)
	}
	if chat.Name != "Alice & Bob" || chat.MessageCount != 2 {
		t.Fatalf("unexpected chat: %+v", chat)
	}
	if st := s.State(); len(st.Chats) != 1 || st.Chats[0].ID != chat.ID {
		t.Fatalf("chat list not refreshed: %+v", st.Chats)
	}
	msgs, _ := s.LoadMessages(ctx, chat.ID, false)
	if len(msgs) != 2 || msgs[1].Content != "Hi! How are you?\nsecond line" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}

	out, err := s.ExportChat(ctx, chat.ID)
	if err != nil || out != transcript {
		t.Fatalf("export not byte-identical: %q %v", out, err)
	}
	if _, err := s.ExportChat(ctx, "missing"); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
}

func TestImportTranscript_Invalid(t *testing.T) {
	s, _ := newSvc(t)
	_, err := s.ImportTranscript(context.Background(), "random unrelated text\nmore junk")
	if !errors.Is(err, ErrInvalidTranscript) || !strings.Contains(err.Error(), "format mismatch") {
		t.Fatalf("expected ErrInvalidTranscript with reasons, got %v", err)
	}
}

func TestImportTranscriptOnce_ReplaysByKey(t *testing.T) {
	ctx := context.Background()
	s, _ := newSvc(t)

	first, replayed, err := s.ImportTranscriptOnce(ctx, "cli", "key-1", transcript, time.Hour)
	if err != nil || replayed {
		t.Fatalf("first import: %v replayed=%v", err, replayed)
	}
	again, replayed, err := s.ImportTranscriptOnce(ctx, "cli", "key-1", transcript, time.Hour)
	if err != nil || !replayed || again.ID != first.ID {
		t.Fatalf("retry should replay %s, got %+v replayed=%v err=%v", first.ID, again, replayed, err)
	}
	if n := len(s.LoadChats(ctx)); n != 1 {
		t.Fatalf("retry created a second chat: %d", n)
	}
	other, replayed, err := s.ImportTranscriptOnce(ctx, "cli", "", transcript, time.Hour)
	if err != nil || replayed || other.ID == first.ID {
		t.Fatalf("keyless import should always create: %+v %v %v", other, replayed, err)
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s, _ := newSvc(t)
	if _, err := s.Search(ctx, "  ", ""); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
	chat, _ := s.ImportTranscript(ctx, transcript)
	hits, err := s.Search(ctx, "HELLO", chat.ID)
	if err != nil || len(hits) != 1 || hits[0].Sender != "Alice" {
		t.Fatalf("search: %v %+v", err, hits)
	}
}

// ---------- delete ----------

func TestDeleteChat_InvalidatesCachesAndPublishes(t *testing.T) {
	ctx := context.Background()
	s, hs := newSvc(t)
	chat := seedChat(t, s, "A", "B")
	other := seedChat(t, s, "A")

	sub, cancel := s.Bus.Subscribe(32)
	defer cancel()

	_ = s.SwitchToChat(ctx, chat.ID)
	mid := repo.MessageID(chat.ID, 0)
	otherMid := repo.MessageID(other.ID, 0)
	if _, err := s.ToggleBookmark(ctx, mid, chat.ID, nil); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := s.ToggleBookmark(ctx, otherMid, "", nil); err != nil {
		t.Fatalf("toggle other: %v", err)
	}

	if err := s.DeleteChat(ctx, chat.ID); err != nil {
		t.Fatalf("DeleteChat: %v", err)
	}
	st := s.State()
	if st.ActiveChatID != "" || len(st.Messages) != 0 || len(st.Bookmarks) != 0 {
		t.Fatalf("state not invalidated: %+v", st)
	}
	for _, c := range st.Chats {
		if c.ID == chat.ID {
			t.Fatalf("deleted chat still listed")
		}
	}

	// Bookmark cache is fully cleared: the other chat's answer comes from storage.
	reads := testutil.ToFloat64(cacheLookups.WithLabelValues("bookmarks", "miss"))
	if ok, err := s.IsMessageBookmarked(ctx, otherMid); err != nil || !ok {
		t.Fatalf("other bookmark lost: %v %v", ok, err)
	}
	if got := testutil.ToFloat64(cacheLookups.WithLabelValues("bookmarks", "miss")); got != reads+1 {
		t.Fatalf("expected a bookmark cache miss after delete")
	}

	msgs, err := hs.Store.GetAllMessagesForChat(ctx, chat.ID)
	if err != nil || len(msgs) != 0 {
		t.Fatalf("messages survived: %v %d", err, len(msgs))
	}
	if err := s.DeleteChat(ctx, chat.ID); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound on second delete, got %v", err)
	}

	sawDelete := false
	for len(sub) > 0 {
		if ev := <-sub; ev.Type == events.ChatDeleted && ev.ChatID == chat.ID {
			sawDelete = true
		}
	}
	if !sawDelete {
		t.Fatalf("no chat_deleted event published")
	}
}
