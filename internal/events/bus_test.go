package events

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLocalBus_FanOut(t *testing.T) {
	b := NewLocalBus(nil)
	defer b.Close()

	a, cancelA := b.Subscribe(4)
	c, cancelC := b.Subscribe(4)
	defer cancelA()
	defer cancelC()

	if err := b.Publish(context.Background(), Event{Type: ChatsChanged}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	for _, ch := range []<-chan Event{a, c} {
		select {
		case ev := <-ch:
			if ev.Type != ChatsChanged || ev.At.IsZero() {
				t.Fatalf("unexpected event: %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber did not receive event")
		}
	}
}

func TestLocalBus_SlowSubscriberDropsWithoutBlocking(t *testing.T) {
	var dropped int32
	b := NewLocalBus(func(Event) { atomic.AddInt32(&dropped, 1) })
	defer b.Close()

	_, cancel := b.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			_ = b.Publish(context.Background(), Event{Type: MessagesLoaded})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publisher blocked on a full subscriber")
	}
	if got := atomic.LoadInt32(&dropped); got != 4 {
		t.Fatalf("dropped = %d; want 4", got)
	}
}

func TestLocalBus_UnsubscribeAndClose(t *testing.T) {
	b := NewLocalBus(nil)
	ch, cancel := b.Subscribe(0)
	cancel()
	cancel() // idempotent
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after cancel")
	}

	other, _ := b.Subscribe(1)
	_ = b.Close()
	if _, ok := <-other; ok {
		t.Fatalf("channel should be closed after Close")
	}
	if err := b.Publish(context.Background(), Event{Type: ChatsChanged}); err != nil {
		t.Fatalf("publish after close should be ignored, got %v", err)
	}
	late, _ := b.Subscribe(1)
	if _, ok := <-late; ok {
		t.Fatalf("subscribe after close should yield a closed channel")
	}
}

func TestNewRedisBus_Validation(t *testing.T) {
	if _, err := NewRedisBus(context.Background(), RedisOptions{}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for missing address")
	}
	_, err := NewRedisBus(context.Background(), RedisOptions{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond}, zerolog.Nop())
	if err == nil {
		t.Fatalf("expected ping failure against closed port")
	}
}

func TestRedisBus_DeliverSkipsOwnOrigin(t *testing.T) {
	b := &RedisBus{local: NewLocalBus(nil), origin: "me", log: zerolog.Nop()}
	ch, cancel := b.local.Subscribe(4)
	defer cancel()

	own, _ := json.Marshal(Event{Type: ChatsChanged, Origin: "me"})
	remote, _ := json.Marshal(Event{Type: ChatDeleted, ChatID: "c1", Origin: "peer"})
	b.deliver(context.Background(), string(own))
	b.deliver(context.Background(), "{not json")
	b.deliver(context.Background(), string(remote))

	select {
	case ev := <-ch:
		if ev.Type != ChatDeleted || ev.ChatID != "c1" {
			t.Fatalf("unexpected relayed event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("remote event not relayed")
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected extra event: %+v", ev)
	default:
	}
}
