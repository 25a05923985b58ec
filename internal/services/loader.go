package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-chat-archive/internal/domain"
	"github.com/tbourn/go-chat-archive/internal/events"
	"github.com/tbourn/go-chat-archive/internal/repo"
)

func (s *ArchiveService) loadTimeout() time.Duration {
	if s.LoadTimeout > 0 {
		return s.LoadTimeout
	}
	return DefaultLoadTimeout
}

func (s *ArchiveService) loadLimit() int {
	if s.MessageLoadLimit > 0 {
		return s.MessageLoadLimit
	}
	return DefaultMessageLoadLimit
}

// LoadMessages returns the messages of chatID.
//
// Without forceRefresh a cached list is served without touching storage.
// Otherwise the list is read under LoadTimeout; concurrent loads of the same
// chat share one storage read. A failed or timed-out load evicts the cached
// entry and returns the error, never the old list. A load that finishes after
// the chat was deleted is discarded with ErrStaleLoad.
//
// When chatID is the active chat, State.Messages follows the result.
func (s *ArchiveService) LoadMessages(ctx context.Context, chatID string, forceRefresh bool) ([]domain.Message, error) {
	ctx, span := tracer().Start(ctx, "LoadMessages",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.Bool("force_refresh", forceRefresh),
		),
	)
	defer span.End()

	if !forceRefresh {
		s.mu.Lock()
		s.lazyInit()
		cached, ok := s.messages[chatID]
		if ok && s.state.ActiveChatID == chatID {
			s.state.Messages = cached
		}
		s.mu.Unlock()
		if ok {
			cacheLookups.WithLabelValues("messages", "hit").Inc()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return slices.Clone(cached), nil
		}
		cacheLookups.WithLabelValues("messages", "miss").Inc()
	}

	ch := s.loads.DoChan(chatID, func() (any, error) {
		return s.fetchMessages(context.WithoutCancel(ctx), chatID)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			span.RecordError(r.Err)
			return nil, r.Err
		}
		return slices.Clone(r.Val.([]domain.Message)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fetchMessages performs one bounded storage read and commits it to the
// cache unless the chat's generation moved on meanwhile.
func (s *ArchiveService) fetchMessages(ctx context.Context, chatID string) ([]domain.Message, error) {
	s.mu.Lock()
	s.lazyInit()
	s.gen[chatID]++
	token := s.gen[chatID]
	s.inflight[chatID]++
	s.state.Loading = true
	s.mu.Unlock()
	s.publish(ctx, events.LoadingChanged, chatID, "")

	defer func() {
		s.mu.Lock()
		if s.inflight[chatID]--; s.inflight[chatID] <= 0 {
			delete(s.inflight, chatID)
		}
		s.state.Loading = len(s.inflight) > 0
		s.mu.Unlock()
		s.publish(ctx, events.LoadingChanged, chatID, "")
	}()

	lctx, cancel := context.WithTimeout(ctx, s.loadTimeout())
	defer cancel()

	type result struct {
		msgs []domain.Message
		err  error
	}
	// A read that outlives the timeout lands here unread.
	done := make(chan result, 1)
	go func() {
		msgs, err := s.readAll(lctx, chatID)
		done <- result{msgs, err}
	}()

	var r result
	select {
	case r = <-done:
	case <-lctx.Done():
		r.err = lctx.Err()
	}

	if r.err != nil {
		reason := "error"
		if errors.Is(r.err, context.DeadlineExceeded) {
			reason = "timeout"
			r.err = fmt.Errorf("load messages for chat %s: %w", chatID, ErrLoadTimeout)
		} else {
			r.err = fmt.Errorf("load messages for chat %s: %w", chatID, r.err)
		}
		loadFailures.WithLabelValues(reason).Inc()

		s.mu.Lock()
		delete(s.messages, chatID)
		if s.state.ActiveChatID == chatID {
			s.state.Messages = nil
		}
		s.mu.Unlock()

		s.Log.Error().Err(r.err).Str("chat_id", chatID).Str("reason", reason).Msg("message load failed")
		return nil, r.err
	}

	s.mu.Lock()
	if s.gen[chatID] != token {
		s.mu.Unlock()
		staleDiscards.Inc()
		s.Log.Warn().Str("chat_id", chatID).Msg("discarding stale message load")
		return nil, fmt.Errorf("load messages for chat %s: %w", chatID, ErrStaleLoad)
	}
	msgs := r.msgs
	if msgs == nil {
		msgs = []domain.Message{}
	}
	s.messages[chatID] = msgs
	if s.state.ActiveChatID == chatID {
		s.state.Messages = msgs
	}
	s.mu.Unlock()

	s.publish(ctx, events.MessagesLoaded, chatID, "")
	return msgs, nil
}

// readAll pages through the chat in keyed reads of loadLimit messages until a
// short page marks the end.
func (s *ArchiveService) readAll(ctx context.Context, chatID string) ([]domain.Message, error) {
	limit := s.loadLimit()
	var out []domain.Message
	for {
		page, err := s.Store.GetMessages(ctx, chatID, limit, len(out))
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < limit {
			return out, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// SwitchToChat makes chatID the active chat and loads its messages. It is a
// no-op when chatID is already active and not loading; concurrent switches to
// the same chat share one attempt. On failure the active chat is reset to
// none and the error is returned.
func (s *ArchiveService) SwitchToChat(ctx context.Context, chatID string) error {
	ctx, span := tracer().Start(ctx, "SwitchToChat", trace.WithAttributes(attribute.String("chat.id", chatID)))
	defer span.End()

	s.mu.Lock()
	s.lazyInit()
	noop := s.state.ActiveChatID == chatID && s.inflight[chatID] == 0
	s.mu.Unlock()
	if noop {
		return nil
	}

	_, err, _ := s.switches.Do(chatID, func() (any, error) {
		return nil, s.switchTo(ctx, chatID)
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (s *ArchiveService) switchTo(ctx context.Context, chatID string) error {
	s.mu.Lock()
	s.state.ActiveChatID = chatID
	s.state.Messages = nil
	s.mu.Unlock()
	s.publish(ctx, events.ActiveChatChanged, chatID, "")

	_, err := s.Store.GetChat(ctx, chatID)
	if err == nil {
		_, err = s.LoadMessages(ctx, chatID, false)
	} else if errors.Is(err, repo.ErrNotFound) {
		err = ErrChatNotFound
	}
	if err == nil {
		return nil
	}

	s.mu.Lock()
	rolledBack := s.state.ActiveChatID == chatID
	if rolledBack {
		s.state.ActiveChatID = ""
		s.state.Messages = nil
	}
	s.mu.Unlock()
	if rolledBack {
		s.publish(ctx, events.ActiveChatChanged, "", "")
	}
	s.Log.Warn().Err(err).Str("chat_id", chatID).Msg("switch chat failed")
	return err
}
