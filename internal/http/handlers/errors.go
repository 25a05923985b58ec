package handlers

// Error codes carried in ErrorResponse.Code. Codes are lowercase snake_case
// and never change once published.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodePayloadTooLarge  = "payload_too_large"
	ErrCodeInternal         = "internal_error"

	// Archive-specific:
	ErrCodeChatNotFound      = "chat_not_found"
	ErrCodeMessageNotFound   = "message_not_found"
	ErrCodeInvalidTranscript = "invalid_transcript"
	ErrCodeLoadTimeout       = "load_timeout"
	ErrCodeStaleLoad         = "stale_load"
)
