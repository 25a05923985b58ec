// Package handlers implements the archive's JSON API on top of
// services.ArchiveService.
//
// Every failure is answered with ErrorResponse and a stable code from
// errors.go; clients branch on the code, never on the message. 5xx responses
// are logged through the request-scoped logger.
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "chat_not_found",
//	  "message": "chat not found"
//	}
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-archive/internal/http/middleware"
	"github.com/tbourn/go-chat-archive/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"chat_not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"chat not found"`
}

// fail aborts the request with a structured error.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail for router fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failErr maps a service error to its status and code.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrChatNotFound):
		fail(c, http.StatusNotFound, ErrCodeChatNotFound, "chat not found")
	case errors.Is(err, services.ErrMessageNotFound):
		fail(c, http.StatusNotFound, ErrCodeMessageNotFound, "message not found")
	case errors.Is(err, services.ErrInvalidTranscript):
		fail(c, http.StatusUnprocessableEntity, ErrCodeInvalidTranscript, err.Error())
	case errors.Is(err, services.ErrEmptyQuery):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query must not be empty")
	case errors.Is(err, services.ErrStaleLoad):
		fail(c, http.StatusConflict, ErrCodeStaleLoad, "chat changed while loading; retry")
	case errors.Is(err, services.ErrLoadTimeout), errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, ErrCodeLoadTimeout, "loading timed out")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
		_ = c.Error(err)
	}
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
