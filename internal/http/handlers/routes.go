package handlers

import "github.com/gin-gonic/gin"

// Register mounts every archive endpoint on g.
func (h *Handlers) Register(g gin.IRoutes) {
	g.POST("/chats", h.CreateChat)
	g.GET("/chats", h.ListChats)
	g.GET("/chats/:id", h.GetChat)
	g.DELETE("/chats/:id", h.DeleteChat)
	g.GET("/chats/:id/export", h.ExportChat)
	g.GET("/chats/:id/stats", h.ChatStats)
	g.GET("/chats/:id/messages", h.ListMessages)
	g.POST("/chats/:id/activate", h.ActivateChat)

	g.GET("/search", h.Search)

	g.POST("/messages/:id/bookmark", h.ToggleBookmark)
	g.GET("/messages/:id/bookmark", h.GetBookmark)
	g.GET("/bookmarks", h.ListBookmarks)

	g.POST("/transcripts/validate", h.ValidateTranscript)
	g.POST("/transcripts/preview", h.PreviewTranscript)

	g.GET("/state", h.GetState)
	g.PUT("/state/search", h.SetSearchQuery)
}
