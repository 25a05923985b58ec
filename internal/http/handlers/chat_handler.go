// Chat HTTP handlers.
//
//   - POST   /chats               (import transcript, Idempotency-Key aware)
//   - GET    /chats               (list by recent activity, ETag support)
//   - GET    /chats/{id}          (one chat)
//   - DELETE /chats/{id}          (cascade delete)
//   - GET    /chats/{id}/export   (stored transcript, byte for byte)
//   - GET    /chats/{id}/stats    (per-sender counts and activity)
//   - POST   /chats/{id}/activate (switch the active chat)
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-archive/internal/domain"
	"github.com/tbourn/go-chat-archive/internal/http/middleware"
	"github.com/tbourn/go-chat-archive/internal/parser"
	"github.com/tbourn/go-chat-archive/internal/services"
)

// Archive is the service contract consumed by the handlers.
// *services.ArchiveService implements it.
type Archive interface {
	LoadChats(ctx context.Context) []domain.Chat
	GetChat(ctx context.Context, chatID string) (*domain.Chat, error)
	ImportTranscriptOnce(ctx context.Context, clientID, key, raw string, ttl time.Duration) (*domain.Chat, bool, error)
	DeleteChat(ctx context.Context, chatID string) error
	ExportChat(ctx context.Context, chatID string) (string, error)
	GetChatStats(ctx context.Context, chatID string) (*services.ChatStats, error)
	SwitchToChat(ctx context.Context, chatID string) error

	LoadMessages(ctx context.Context, chatID string, forceRefresh bool) ([]domain.Message, error)
	Search(ctx context.Context, query, chatID string) ([]domain.Message, error)

	ToggleBookmark(ctx context.Context, messageID, chatID string, note *string) (bool, error)
	IsMessageBookmarked(ctx context.Context, messageID string) (bool, error)
	BookmarkedMessages(ctx context.Context, chatID string) ([]services.BookmarkedMessage, error)

	State() services.State
	SetSearchQuery(ctx context.Context, q string)
}

// ChatsStatser backs the chat list ETag. Optional.
type ChatsStatser interface {
	ChatsStats(ctx context.Context) (int64, *time.Time, error)
}

// Options tunes the handlers. Zero values select the defaults.
type Options struct {
	// ImportTTL is how long an Idempotency-Key replays its import (24h).
	ImportTTL time.Duration
	// Parser validates and previews uploads; defaults to parser.New().
	Parser *parser.Parser
}

// Handlers groups the archive endpoints.
type Handlers struct {
	svc       Archive
	stats     ChatsStatser
	parser    *parser.Parser
	importTTL time.Duration
}

// New binds the handlers to svc. stats may be nil, which disables ETags.
func New(svc Archive, stats ChatsStatser, opts Options) *Handlers {
	h := &Handlers{svc: svc, stats: stats, parser: opts.Parser, importTTL: opts.ImportTTL}
	if h.parser == nil {
		h.parser = parser.New()
	}
	if h.importTTL <= 0 {
		h.importTTL = 24 * time.Hour
	}
	return h
}

// TranscriptRequest is the JSON form of an upload. Plain-text bodies are
// accepted as the transcript itself.
type TranscriptRequest struct {
	Content string `json:"content" example:"2/24/24, 21:56 - Alice: Hello there!"`
}

// ListChatsResponse wraps the chat list.
type ListChatsResponse struct {
	Chats []domain.Chat `json:"chats"`
	Total int           `json:"total"`
}

// readTranscript returns the upload from a JSON or plain-text body. It fails
// the request itself and reports false when the body is unusable.
func readTranscript(c *gin.Context) (string, bool) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge,
				fmt.Sprintf("transcript exceeds %d bytes", mbe.Limit))
			return "", false
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return "", false
	}
	if mt, _, _ := mime.ParseMediaType(c.ContentType()); mt == "application/json" {
		var req TranscriptRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return "", false
		}
		return req.Content, true
	}
	return string(raw), true
}

// CreateChat godoc
// @ID          importChat
// @Summary     Import a transcript
// @Description Validates, parses and stores a chat export. A repeated Idempotency-Key from the same client returns the first chat with 200.
// @Tags        Chats
// @Accept      json,plain
// @Produce     json
// @Param       Idempotency-Key header string false "Retry key"           example(import-2024-02-24)
// @Param       X-Client-ID     header string false "Client identity"     example(viewer-1)
// @Param       body            body   handlers.TranscriptRequest true "Transcript"
// @Success     201 {object} domain.Chat
// @Success     200 {object} domain.Chat "Replayed import"
// @Failure     400 {object} handlers.ErrorResponse
// @Failure     413 {object} handlers.ErrorResponse
// @Failure     422 {object} handlers.ErrorResponse
// @Router      /chats [post]
func (h *Handlers) CreateChat(c *gin.Context) {
	raw, good := readTranscript(c)
	if !good {
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)
	chat, replayed, err := h.svc.ImportTranscriptOnce(c.Request.Context(), middleware.ClientID(c), key, raw, h.importTTL)
	if err != nil {
		failErr(c, err)
		return
	}
	if replayed {
		c.Header("Idempotent-Replay", "true")
		ok(c, http.StatusOK, chat)
		return
	}
	c.Header("Location", c.FullPath()+"/"+chat.ID)
	ok(c, http.StatusCreated, chat)
}

// ListChats godoc
// @ID          listChats
// @Summary     List chats
// @Description Chats ordered by most recent activity. Supports a weak ETag via If-None-Match.
// @Tags        Chats
// @Produce     json
// @Param       If-None-Match header string false "Return 304 if ETag matches"
// @Success     200 {object} handlers.ListChatsResponse
// @Header      200 {string} ETag "Weak ETag for current result"
// @Success     304 {string} string "Not Modified"
// @Router      /chats [get]
func (h *Handlers) ListChats(c *gin.Context) {
	ctx := c.Request.Context()
	if h.stats != nil {
		if count, maxTS, err := h.stats.ChatsStats(ctx); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"chats:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if c.GetHeader("If-None-Match") == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}
	chats := h.svc.LoadChats(ctx)
	ok(c, http.StatusOK, ListChatsResponse{Chats: chats, Total: len(chats)})
}

// GetChat godoc
// @ID       getChat
// @Summary  Get a chat
// @Tags     Chats
// @Produce  json
// @Param    id path string true "Chat ID"
// @Success  200 {object} domain.Chat
// @Failure  404 {object} handlers.ErrorResponse
// @Router   /chats/{id} [get]
func (h *Handlers) GetChat(c *gin.Context) {
	chat, err := h.svc.GetChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, chat)
}

// DeleteChat godoc
// @ID       deleteChat
// @Summary  Delete a chat with its messages and bookmarks
// @Tags     Chats
// @Param    id path string true "Chat ID"
// @Success  204 {string} string "No Content"
// @Failure  404 {object} handlers.ErrorResponse
// @Router   /chats/{id} [delete]
func (h *Handlers) DeleteChat(c *gin.Context) {
	if err := h.svc.DeleteChat(c.Request.Context(), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// ExportChat godoc
// @ID       exportChat
// @Summary  Export the original transcript
// @Tags     Chats
// @Produce  plain
// @Param    id path string true "Chat ID"
// @Success  200 {string} string "Transcript"
// @Failure  404 {object} handlers.ErrorResponse
// @Router   /chats/{id}/export [get]
func (h *Handlers) ExportChat(c *gin.Context) {
	id := c.Param("id")
	raw, err := h.svc.ExportChat(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="chat-%s.txt"`, id))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(raw))
}

// ChatStats godoc
// @ID       chatStats
// @Summary  Chat statistics
// @Tags     Chats
// @Produce  json
// @Param    id path string true "Chat ID"
// @Success  200 {object} services.ChatStats
// @Failure  404 {object} handlers.ErrorResponse
// @Router   /chats/{id}/stats [get]
func (h *Handlers) ChatStats(c *gin.Context) {
	st, err := h.svc.GetChatStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

// ActivateChat godoc
// @ID          activateChat
// @Summary     Make a chat active
// @Description Switches the active chat and loads its messages. On failure no chat is active.
// @Tags        Chats
// @Produce     json
// @Param       id path string true "Chat ID"
// @Success     200 {object} handlers.StateResponse
// @Failure     404 {object} handlers.ErrorResponse
// @Failure     504 {object} handlers.ErrorResponse
// @Router      /chats/{id}/activate [post]
func (h *Handlers) ActivateChat(c *gin.Context) {
	if err := h.svc.SwitchToChat(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, newStateResponse(h.svc.State()))
}
