package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "curated/internal/errors"
	"curated/internal/logger"
)

// Stripe ограничивает размер события, больше не читаем
const maxWebhookBody = 1 << 20

// StripeWebhook - POST /api/webhooks/stripe
// Тело нужно в исходном виде для проверки подписи
func (h *Handlers) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	if err := h.services.Webhooks.HandleStripe(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		// любой отказ - 400, Stripe повторит доставку; детали только в логе
		msg := "Webhook processing failed"
		if errors.Is(err, apperrors.ErrInvalidSignature) {
			msg = "Invalid signature"
		}
		logger.WithContext(c.Request.Context()).Warn("Webhook not accepted", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
