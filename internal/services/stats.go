package services

import (
	"context"
	"errors"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-chat-archive/internal/repo"
)

// ChatStats summarizes one chat.
type ChatStats struct {
	ChatID        string         `json:"chat_id"`
	Name          string         `json:"name"`
	TotalMessages int            `json:"total_messages"`
	SenderCounts  map[string]int `json:"sender_counts"`
	Start         *time.Time     `json:"start,omitempty"`
	End           *time.Time     `json:"end,omitempty"`
	DaySpan       int            `json:"day_span"`
	AveragePerDay float64        `json:"average_per_day"`
}

// GetChatStats tallies a chat's messages per sender and derives the date
// range and the average number of messages per day. The day span is rounded
// up and never below one, so a same-day chat averages over one day.
func (s *ArchiveService) GetChatStats(ctx context.Context, chatID string) (*ChatStats, error) {
	ctx, span := tracer().Start(ctx, "GetChatStats", trace.WithAttributes(attribute.String("chat.id", chatID)))
	defer span.End()

	chat, err := s.Store.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	msgs, err := s.Store.GetAllMessagesForChat(ctx, chatID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	st := &ChatStats{
		ChatID:        chat.ID,
		Name:          chat.Name,
		TotalMessages: len(msgs),
		SenderCounts:  map[string]int{},
	}
	if len(msgs) == 0 {
		return st, nil
	}

	start, end := msgs[0].Timestamp, msgs[0].Timestamp
	for _, m := range msgs {
		st.SenderCounts[m.Sender]++
		if m.Timestamp.Before(start) {
			start = m.Timestamp
		}
		if m.Timestamp.After(end) {
			end = m.Timestamp
		}
	}
	st.Start, st.End = &start, &end

	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	st.DaySpan = max(1, days)
	st.AveragePerDay = float64(len(msgs)) / float64(st.DaySpan)
	return st, nil
}
