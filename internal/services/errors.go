// Package services defines the business logic of the archive: importing
// transcripts, caching and serving messages, bookmarks and statistics.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrChatNotFound indicates that the requested chat does not exist.
	ErrChatNotFound = errors.New("chat not found")

	// ErrMessageNotFound indicates that the requested message does not exist
	// or does not belong to the given chat.
	ErrMessageNotFound = errors.New("message not found")

	// ErrInvalidTranscript is returned when an import fails validation. The
	// wrapping error carries the validation reasons.
	ErrInvalidTranscript = errors.New("invalid transcript")

	// ErrLoadTimeout is returned when a message load does not finish within
	// the configured load timeout.
	ErrLoadTimeout = errors.New("load timed out")

	// ErrStaleLoad is returned when a load finished after the chat was
	// deleted or invalidated; its result is discarded.
	ErrStaleLoad = errors.New("load superseded")

	// ErrEmptyQuery is returned for a blank search query.
	ErrEmptyQuery = errors.New("search query is empty")
)
