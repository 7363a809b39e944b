package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"curated/internal/logger"
	"curated/internal/middleware"
	"curated/internal/models"
)

// CreateConversation - POST /api/conversations (создатель)
func (h *Handlers) CreateConversation(c *gin.Context) {
	var req models.CreateConversationRequest
	if !bindJSON(c, &req) {
		return
	}

	conv, err := h.services.Conversations.Start(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		respondError(c, err, "Failed to create conversation")
		return
	}
	c.JSON(http.StatusOK, conv)
}

// ListConversations - GET /api/conversations
func (h *Handlers) ListConversations(c *gin.Context) {
	convs, err := h.services.Conversations.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err, "Failed to list conversations")
		return
	}
	c.JSON(http.StatusOK, convs)
}

// ListMessages - GET /api/conversations/:id/messages
func (h *Handlers) ListMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	msgs, err := h.services.Conversations.Messages(c.Request.Context(), middleware.UserID(c), c.Param("id"), limit)
	if err != nil {
		respondError(c, err, "Failed to list messages")
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// PostMessage - POST /api/conversations/:id/messages
func (h *Handlers) PostMessage(c *gin.Context) {
	var req models.PostMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.services.Conversations.Post(c.Request.Context(), middleware.UserID(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "Failed to post message")
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// MarkRead - POST /api/conversations/:id/read
func (h *Handlers) MarkRead(c *gin.Context) {
	ids, err := h.services.Conversations.MarkRead(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to mark messages read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messageIds": ids})
}

// UnreadCount - GET /api/conversations/unread-count
func (h *Handlers) UnreadCount(c *gin.Context) {
	n, err := h.services.Conversations.UnreadCount(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err, "Failed to count unread messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// ConversationSocket - GET /api/conversations/:id/ws
// Подписка на события беседы; доступна только участникам
func (h *Handlers) ConversationSocket(c *gin.Context) {
	userID := middleware.UserID(c)
	conv, err := h.services.Conversations.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to open conversation")
		return
	}

	if err := h.hub.ServeWS(c.Writer, c.Request, conv.ID, userID); err != nil {
		// upgrader уже ответил клиенту
		logger.WithContext(c.Request.Context()).Warn("Websocket upgrade failed", "conversation_id", conv.ID, "error", err)
	}
}
