package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apperrors "curated/internal/errors"
	"curated/internal/logger"
	"curated/internal/realtime"
	"curated/internal/service"
	"curated/internal/validation"
)

type Handlers struct {
	services *service.Services
	hub      *realtime.Hub
}

func NewHandlers(services *service.Services, hub *realtime.Hub) *Handlers {
	return &Handlers{
		services: services,
		hub:      hub,
	}
}

// respondError переводит доменную ошибку в HTTP статус. Для 5xx клиент
// получает fallback, подробности уходят в лог.
func respondError(c *gin.Context, err error, fallback string) {
	status, msg := http.StatusInternalServerError, fallback

	switch {
	case errors.Is(err, apperrors.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrInvalidSignature):
		status, msg = http.StatusBadRequest, "Invalid signature"
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, apperrors.ErrForbidden):
		status, msg = http.StatusForbidden, "Forbidden"
	case errors.Is(err, apperrors.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, apperrors.ErrInvalidTransition):
		status, msg = http.StatusConflict, "Booking cannot be changed in its current state"
	case errors.Is(err, apperrors.ErrConflict):
		status, msg = http.StatusConflict, "Conflict"
	case errors.Is(err, apperrors.ErrPaymentAccountMissing):
		status, msg = http.StatusUnprocessableEntity, apperrors.ErrPaymentAccountMissing.Error()
	}

	log := logger.WithContext(c.Request.Context())
	if status >= http.StatusInternalServerError {
		log.Error(fallback, "error", err)
		_ = c.Error(err)
	} else {
		log.Info("Request rejected", "status", status, "error", err)
	}
	c.JSON(status, gin.H{"error": msg})
}

// bindJSON пишет 400 и возвращает false, если тело невалидно
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message(verrs)})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	return true
}

// pagination читает page/pageSize, false если значения вне диапазона
func pagination(c *gin.Context) (int, int, bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be >= 1"})
		return 0, 0, false
	}

	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pageSize must be between 1 and 100"})
		return 0, 0, false
	}
	return page, pageSize, true
}
