package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBus mirrors events through a Redis pub/sub channel so several
// processes sharing one archive observe each other's changes. Local
// subscribers are served by an embedded LocalBus; events published here are
// delivered locally at once and echoed back from Redis are skipped.
type RedisBus struct {
	local   *LocalBus
	rdb     *goredis.Client
	channel string
	origin  string
	log     zerolog.Logger
	cancel  context.CancelFunc
}

// RedisOptions configures NewRedisBus.
type RedisOptions struct {
	Addr        string
	Channel     string
	DialTimeout time.Duration
}

// NewRedisBus connects to Redis, verifies the connection and starts the
// forwarder that relays remote events to local subscribers.
func NewRedisBus(ctx context.Context, opts RedisOptions, log zerolog.Logger) (*RedisBus, error) {
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	ch := strings.TrimSpace(opts.Channel)
	if ch == "" {
		ch = "chat-archive"
	}
	dial := opts.DialTimeout
	if dial <= 0 {
		dial = 5 * time.Second
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: dial,
	})

	pctx, cancel := context.WithTimeout(ctx, dial)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	b := &RedisBus{
		local:   NewLocalBus(nil),
		rdb:     rdb,
		channel: ch,
		origin:  uuid.NewString(),
		log:     log.With().Str("component", "redis_bus").Logger(),
	}

	fctx, fcancel := context.WithCancel(context.Background())
	b.cancel = fcancel
	sub := rdb.Subscribe(fctx, ch)
	// ensures subscription actually started
	if _, err := sub.Receive(fctx); err != nil {
		fcancel()
		_ = sub.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}
	go b.forward(fctx, sub)
	return b, nil
}

func (b *RedisBus) forward(ctx context.Context, sub *goredis.PubSub) {
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok || m == nil {
				return
			}
			b.deliver(ctx, m.Payload)
		}
	}
}

// deliver relays one Redis payload to local subscribers unless it originated
// here.
func (b *RedisBus) deliver(ctx context.Context, payload string) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		b.log.Warn().Err(err).Msg("bad event payload")
		return
	}
	if ev.Origin == b.origin {
		return
	}
	_ = b.local.Publish(ctx, ev)
}

// Publish delivers ev locally and mirrors it to Redis.
func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	ev.Origin = b.origin
	_ = b.local.Publish(ctx, ev)

	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// Origin identifies this process on the channel.
func (b *RedisBus) Origin() string { return b.origin }

// Subscribe registers a local subscriber.
func (b *RedisBus) Subscribe(buffer int) (<-chan Event, func()) {
	return b.local.Subscribe(buffer)
}

// Close stops the forwarder and releases the connection.
func (b *RedisBus) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	_ = b.local.Close()
	return b.rdb.Close()
}
