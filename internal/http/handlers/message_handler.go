// Message and bookmark handlers.
//
//   - GET  /chats/{id}/messages   (paged, ordered by message index)
//   - GET  /search                (substring search, optional chat filter)
//   - POST /messages/{id}/bookmark (toggle)
//   - GET  /messages/{id}/bookmark (status)
//   - GET  /bookmarks              (bookmarks joined with their messages)
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-archive/internal/domain"
	"github.com/tbourn/go-chat-archive/internal/services"
	"github.com/tbourn/go-chat-archive/internal/utils"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// MessagesPage is one page of a chat's messages.
type MessagesPage struct {
	ChatID   string           `json:"chat_id"`
	Messages []domain.Message `json:"messages"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// SearchResponse holds search hits.
type SearchResponse struct {
	Query   string           `json:"query"`
	ChatID  string           `json:"chat_id,omitempty"`
	Results []domain.Message `json:"results"`
	Total   int              `json:"total"`
}

// ToggleBookmarkRequest is the optional body of a bookmark toggle.
type ToggleBookmarkRequest struct {
	ChatID string  `json:"chat_id,omitempty"`
	Note   *string `json:"note,omitempty" example:"remember this"`
}

// BookmarkStatus reports whether a message is bookmarked.
type BookmarkStatus struct {
	MessageID  string `json:"message_id"`
	Bookmarked bool   `json:"bookmarked"`
}

// BookmarksResponse lists bookmarks with their messages.
type BookmarksResponse struct {
	Bookmarks []services.BookmarkedMessage `json:"bookmarks"`
	Total     int                          `json:"total"`
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List a chat's messages
// @Description Messages in transcript order. refresh=true bypasses the cache.
// @Tags        Messages
// @Produce     json
// @Param       id      path  string true  "Chat ID"
// @Param       limit   query int    false "Page size (1..1000)" default(100)
// @Param       offset  query int    false "Offset"              default(0)
// @Param       refresh query bool   false "Force a reload"
// @Success     200 {object} handlers.MessagesPage
// @Failure     404 {object} handlers.ErrorResponse
// @Failure     504 {object} handlers.ErrorResponse
// @Router      /chats/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	chatID := c.Param("id")
	ctx := c.Request.Context()
	if _, err := h.svc.GetChat(ctx, chatID); err != nil {
		failErr(c, err)
		return
	}
	force, _ := strconv.ParseBool(c.Query("refresh"))
	msgs, err := h.svc.LoadMessages(ctx, chatID, force)
	if err != nil {
		failErr(c, err)
		return
	}
	limit, offset := utils.ParsePage(c.Query("limit"), c.Query("offset"), defaultPageSize, maxPageSize)
	lo, hi := utils.Window(len(msgs), limit, offset)
	ok(c, http.StatusOK, MessagesPage{
		ChatID:   chatID,
		Messages: msgs[lo:hi],
		Total:    len(msgs),
		Limit:    limit,
		Offset:   offset,
	})
}

// Search godoc
// @ID          searchMessages
// @Summary     Search messages
// @Description Case-folded substring match on content or sender, in chat then transcript order.
// @Tags        Messages
// @Produce     json
// @Param       q       query string true  "Query"
// @Param       chat_id query string false "Restrict to one chat"
// @Success     200 {object} handlers.SearchResponse
// @Failure     400 {object} handlers.ErrorResponse
// @Router      /search [get]
func (h *Handlers) Search(c *gin.Context) {
	q := c.Query("q")
	chatID := strings.TrimSpace(c.Query("chat_id"))
	hits, err := h.svc.Search(c.Request.Context(), q, chatID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, SearchResponse{Query: q, ChatID: chatID, Results: hits, Total: len(hits)})
}

// ToggleBookmark godoc
// @ID          toggleBookmark
// @Summary     Toggle a bookmark
// @Description Creates the bookmark if absent and removes it otherwise.
// @Tags        Bookmarks
// @Accept      json
// @Produce     json
// @Param       id   path string                          true  "Message ID"
// @Param       body body handlers.ToggleBookmarkRequest false "Optional chat check and note"
// @Success     200 {object} handlers.BookmarkStatus
// @Failure     400 {object} handlers.ErrorResponse
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /messages/{id}/bookmark [post]
func (h *Handlers) ToggleBookmark(c *gin.Context) {
	var req ToggleBookmarkRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	msgID := c.Param("id")
	on, err := h.svc.ToggleBookmark(c.Request.Context(), msgID, strings.TrimSpace(req.ChatID), req.Note)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, BookmarkStatus{MessageID: msgID, Bookmarked: on})
}

// GetBookmark godoc
// @ID       getBookmark
// @Summary  Bookmark status of a message
// @Tags     Bookmarks
// @Produce  json
// @Param    id path string true "Message ID"
// @Success  200 {object} handlers.BookmarkStatus
// @Router   /messages/{id}/bookmark [get]
func (h *Handlers) GetBookmark(c *gin.Context) {
	msgID := c.Param("id")
	on, err := h.svc.IsMessageBookmarked(c.Request.Context(), msgID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, BookmarkStatus{MessageID: msgID, Bookmarked: on})
}

// ListBookmarks godoc
// @ID       listBookmarks
// @Summary  List bookmarks
// @Tags     Bookmarks
// @Produce  json
// @Param    chat_id query string false "Restrict to one chat"
// @Success  200 {object} handlers.BookmarksResponse
// @Router   /bookmarks [get]
func (h *Handlers) ListBookmarks(c *gin.Context) {
	items, err := h.svc.BookmarkedMessages(c.Request.Context(), strings.TrimSpace(c.Query("chat_id")))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, BookmarksResponse{Bookmarks: items, Total: len(items)})
}
