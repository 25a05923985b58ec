// Package events carries archive state-change notifications from the service
// layer to whoever renders derived views. Publishers never block: a subscriber
// that falls behind loses events rather than stalling the archive.
package events

import (
	"context"
	"sync"
	"time"
)

// Type names a kind of state change.
type Type string

const (
	ChatsChanged      Type = "chats_changed"
	ChatDeleted       Type = "chat_deleted"
	ActiveChatChanged Type = "active_chat_changed"
	MessagesLoaded    Type = "messages_loaded"
	BookmarksChanged  Type = "bookmarks_changed"
	LoadingChanged    Type = "loading_changed"
	SearchChanged     Type = "search_changed"
)

// Event is one state change. Origin identifies the publishing process so
// mirrored events can be told apart from local ones.
type Event struct {
	Type      Type      `json:"type"`
	ChatID    string    `json:"chat_id,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
	Origin    string    `json:"origin,omitempty"`
	At        time.Time `json:"at"`
}

// Bus fans events out to subscribers.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe returns a channel of events and a function that cancels the
	// subscription and closes the channel.
	Subscribe(buffer int) (<-chan Event, func())
	Close() error
}

// DefaultBuffer is used when Subscribe is called with a non-positive size.
const DefaultBuffer = 64

// LocalBus is an in-process Bus over buffered channels.
type LocalBus struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	next    int
	closed  bool
	dropped func(Event)
}

// NewLocalBus returns an empty bus. onDrop, if set, is called for every event
// a slow subscriber missed.
func NewLocalBus(onDrop func(Event)) *LocalBus {
	return &LocalBus{subs: map[int]chan Event{}, dropped: onDrop}
}

// Publish delivers ev to every subscriber with room in its buffer.
func (b *LocalBus) Publish(_ context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			if b.dropped != nil {
				b.dropped(ev)
			}
		}
	}
	return nil
}

// Subscribe registers a new subscriber.
func (b *LocalBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	return nil
}
