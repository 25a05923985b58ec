package services

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-chat-archive/internal/events"
)

var (
	// cacheLookups counts cache reads by cache (messages, bookmarks) and
	// result (hit, miss).
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_cache_lookups_total",
			Help: "Archive cache lookups by cache and result.",
		},
		[]string{"cache", "result"},
	)

	loadFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_load_failures_total",
			Help: "Message loads that failed, by reason (timeout, error).",
		},
		[]string{"reason"},
	)

	staleDiscards = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "archive_stale_responses_discarded_total",
			Help: "Load results discarded because the chat changed while loading.",
		},
	)

	bookmarkToggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_bookmark_toggles_total",
			Help: "Bookmark toggles by resulting action (added, removed).",
		},
		[]string{"action"},
	)

	droppedEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "archive_events_dropped_total",
			Help: "State-change events dropped for slow subscribers.",
		},
	)
)

func init() {
	prometheus.MustRegister(cacheLookups, loadFailures, staleDiscards, bookmarkToggles, droppedEvents)
}

// CountDroppedEvent is an events.LocalBus drop hook that feeds
// archive_events_dropped_total.
func CountDroppedEvent(events.Event) { droppedEvents.Inc() }
