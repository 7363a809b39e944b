package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"curated/internal/middleware"
	"curated/internal/models"
)

// SendMessage - POST /api/messages/send
// Доставить сообщение получателю по SMS / WhatsApp / email
func (h *Handlers) SendMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.services.Messaging.SendMessage(c.Request.Context(), middleware.UserID(c), &req); err != nil {
		respondError(c, err, "Failed to send message")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Announce - POST /api/experiences/:id/announcements
// Рассылка создателя всем подтверждённым участникам
func (h *Handlers) Announce(c *gin.Context) {
	var req models.AnnouncementRequest
	if !bindJSON(c, &req) {
		return
	}

	broadcast, err := h.services.Messaging.Announce(c.Request.Context(), middleware.UserID(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err, "Failed to send announcement")
		return
	}

	c.JSON(http.StatusCreated, broadcast)
}
