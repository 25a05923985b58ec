package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-archive/internal/domain"
	"github.com/tbourn/go-chat-archive/internal/services"
)

// StateResponse is the archive state plus the views derived from it.
type StateResponse struct {
	services.State
	CurrentChat          *domain.Chat     `json:"current_chat,omitempty"`
	FilteredMessages     []domain.Message `json:"filtered_messages"`
	CurrentChatBookmarks []domain.Message `json:"current_chat_bookmarks"`
}

func newStateResponse(st services.State) StateResponse {
	out := StateResponse{
		State:                st,
		FilteredMessages:     services.FilteredMessages(st),
		CurrentChatBookmarks: services.CurrentChatBookmarks(st),
	}
	if out.FilteredMessages == nil {
		out.FilteredMessages = []domain.Message{}
	}
	if c, found := services.CurrentChat(st); found {
		out.CurrentChat = &c
	}
	return out
}

// SearchQueryRequest sets the live filter.
type SearchQueryRequest struct {
	Query string `json:"query" example:"dinner"`
}

// GetState godoc
// @ID       getState
// @Summary  Archive state snapshot
// @Tags     State
// @Produce  json
// @Success  200 {object} handlers.StateResponse
// @Router   /state [get]
func (h *Handlers) GetState(c *gin.Context) {
	ok(c, http.StatusOK, newStateResponse(h.svc.State()))
}

// SetSearchQuery godoc
// @ID          setSearchQuery
// @Summary     Set the live message filter
// @Description Filters the active chat's loaded messages. An empty query clears the filter.
// @Tags        State
// @Accept      json
// @Produce     json
// @Param       body body handlers.SearchQueryRequest true "Query"
// @Success     200 {object} handlers.StateResponse
// @Failure     400 {object} handlers.ErrorResponse
// @Router      /state/search [put]
func (h *Handlers) SetSearchQuery(c *gin.Context) {
	var req SearchQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	h.svc.SetSearchQuery(c.Request.Context(), req.Query)
	ok(c, http.StatusOK, newStateResponse(h.svc.State()))
}

// ValidateTranscript godoc
// @ID          validateTranscript
// @Summary     Validate a transcript without importing it
// @Tags        Transcripts
// @Accept      json,plain
// @Produce     json
// @Param       body body handlers.TranscriptRequest true "Transcript"
// @Success     200 {object} parser.Validation
// @Failure     413 {object} handlers.ErrorResponse
// @Router      /transcripts/validate [post]
func (h *Handlers) ValidateTranscript(c *gin.Context) {
	raw, good := readTranscript(c)
	if !good {
		return
	}
	ok(c, http.StatusOK, h.parser.Validate(raw))
}

// PreviewTranscript godoc
// @ID          previewTranscript
// @Summary     Preview the head of a transcript
// @Description Parses the first 20 lines and returns up to five messages.
// @Tags        Transcripts
// @Accept      json,plain
// @Produce     json
// @Param       body body handlers.TranscriptRequest true "Transcript"
// @Success     200 {object} parser.PreviewResult
// @Failure     413 {object} handlers.ErrorResponse
// @Router      /transcripts/preview [post]
func (h *Handlers) PreviewTranscript(c *gin.Context) {
	raw, good := readTranscript(c)
	if !good {
		return
	}
	ok(c, http.StatusOK, h.parser.Preview(raw))
}
