package services

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-chat-archive/internal/domain"
	"github.com/tbourn/go-chat-archive/internal/events"
	"github.com/tbourn/go-chat-archive/internal/repo"
)

func TestInvalidate_RemoteDelete(t *testing.T) {
	s, hs := newSvc(t)
	ctx := context.Background()
	c := seedChat(t, s, "A", "B")
	if err := s.SwitchToChat(ctx, c.ID); err != nil {
		t.Fatalf("SwitchToChat: %v", err)
	}
	reads := hs.Reads()

	// Another process deletes the chat behind our back.
	if err := hs.Store.DeleteChat(ctx, c.ID); err != nil {
		t.Fatalf("DeleteChat: %v", err)
	}
	s.Invalidate(ctx, events.Event{Type: events.ChatDeleted, ChatID: c.ID, Origin: "peer"})

	st := s.State()
	if st.ActiveChatID != "" || len(st.Messages) != 0 || len(st.Chats) != 0 {
		t.Fatalf("stale state survived: %+v", st)
	}
	if _, err := s.LoadMessages(ctx, c.ID, false); err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	if hs.Reads() != reads+1 {
		t.Fatalf("cache should have been dropped; reads %d -> %d", reads, hs.Reads())
	}
}

func TestInvalidate_RemoteBookmarkChange(t *testing.T) {
	s, hs := newSvc(t)
	ctx := context.Background()
	c := seedChat(t, s, "A")
	msgID := repo.MessageID(c.ID, 0)
	if on, err := s.ToggleBookmark(ctx, msgID, "", nil); err != nil || !on {
		t.Fatalf("ToggleBookmark: %v %v", on, err)
	}

	b, err := hs.Store.GetBookmarkByMessageID(ctx, msgID)
	if err != nil || b == nil {
		t.Fatalf("bookmark lookup: %v %v", b, err)
	}
	if err := hs.Store.RemoveBookmark(ctx, b.ID); err != nil {
		t.Fatalf("RemoveBookmark: %v", err)
	}
	if on, _ := s.IsMessageBookmarked(ctx, msgID); !on {
		t.Fatalf("cached answer expected before invalidation")
	}

	s.Invalidate(ctx, events.Event{Type: events.BookmarksChanged, ChatID: c.ID, MessageID: msgID, Origin: "peer"})
	if on, _ := s.IsMessageBookmarked(ctx, msgID); on {
		t.Fatalf("invalidated bookmark should be re-read as absent")
	}
}

func TestFollowRemote_RefreshesChatList(t *testing.T) {
	s, hs := newSvc(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.FollowRemote(ctx, "self")
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	if _, err := hs.Store.StoreChat(context.Background(), "peer-chat", "Peer", []string{"P"},
		[]domain.NewMessage{{Timestamp: time.Now(), Sender: "P", Content: "hi"}}, "raw"); err != nil {
		t.Fatalf("StoreChat: %v", err)
	}

	// The subscription starts asynchronously, so keep announcing until seen.
	deadline := time.Now().Add(2 * time.Second)
	for len(s.State().Chats) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("remote change never applied")
		}
		_ = s.Bus.Publish(context.Background(), events.Event{Type: events.ChatsChanged, Origin: "peer"})
		time.Sleep(10 * time.Millisecond)
	}
	if got := s.State().Chats[0].ID; got != "peer-chat" {
		t.Fatalf("chat=%s", got)
	}
}

func TestFollowRemote_SkipsOwnEvents(t *testing.T) {
	s, hs := newSvc(t)
	calls := 0
	hs.getAllChats = func(ctx context.Context) ([]domain.Chat, error) {
		calls++
		return nil, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.FollowRemote(ctx, "self")
	}()
	for range 20 {
		_ = s.Bus.Publish(context.Background(), events.Event{Type: events.ChatsChanged, Origin: "self"})
		_ = s.Bus.Publish(context.Background(), events.Event{Type: events.ChatsChanged})
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
	if calls != 0 {
		t.Fatalf("own events must not trigger a refresh, got %d", calls)
	}
}
