package services

import (
	"context"

	"github.com/tbourn/go-chat-archive/internal/events"
)

// Invalidate drops cached state made stale by a change another process
// published. It never publishes: the bus has already delivered ev to local
// subscribers.
func (s *ArchiveService) Invalidate(ctx context.Context, ev events.Event) {
	switch ev.Type {
	case events.ChatsChanged:
		s.refreshChats(ctx)
	case events.ChatDeleted:
		s.forgetChat(ev.ChatID)
		s.refreshChats(ctx)
	case events.BookmarksChanged:
		s.mu.Lock()
		s.lazyInit()
		s.bmGen++
		if ev.MessageID != "" {
			delete(s.bookmarks, ev.MessageID)
		} else {
			s.bookmarks = map[string]bool{}
		}
		s.mu.Unlock()
	}
}

// FollowRemote applies events from other processes until ctx ends or the bus
// closes. Events carrying no origin, or self, are local and skipped.
func (s *ArchiveService) FollowRemote(ctx context.Context, self string) {
	if s.Bus == nil {
		return
	}
	ch, cancel := s.Bus.Subscribe(0)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Origin == "" || ev.Origin == self {
				continue
			}
			s.Log.Debug().Str("event", string(ev.Type)).Str("origin", ev.Origin).Msg("remote change")
			s.Invalidate(ctx, ev)
		}
	}
}
