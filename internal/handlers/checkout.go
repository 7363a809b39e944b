package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"curated/internal/middleware"
	"curated/internal/models"
)

// CreateCheckoutSession - POST /api/checkout/sessions
// Создать бронирование и сессию оплаты (или заявку для request-впечатлений)
func (h *Handlers) CreateCheckoutSession(c *gin.Context) {
	var req models.CreateCheckoutSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	resp, err := h.services.Bookings.CreateCheckout(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		respondError(c, err, "Failed to create checkout session")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListBookings - GET /api/bookings
func (h *Handlers) ListBookings(c *gin.Context) {
	resp, err := h.services.Bookings.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err, "Failed to list bookings")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CancelBooking - POST /api/bookings/:id/cancel
func (h *Handlers) CancelBooking(c *gin.Context) {
	booking, err := h.services.Bookings.Cancel(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to cancel booking")
		return
	}
	c.JSON(http.StatusOK, booking)
}

// ListBookingRequests - GET /api/booking-requests
// Заявки, ожидающие решения текущего создателя
func (h *Handlers) ListBookingRequests(c *gin.Context) {
	reqs, err := h.services.Bookings.ListRequests(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err, "Failed to list booking requests")
		return
	}
	c.JSON(http.StatusOK, reqs)
}

// ApproveBookingRequest - POST /api/booking-requests/:id/approve
func (h *Handlers) ApproveBookingRequest(c *gin.Context) {
	resp, err := h.services.Bookings.ApproveRequest(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to approve booking request")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeclineBookingRequest - POST /api/booking-requests/:id/decline
func (h *Handlers) DeclineBookingRequest(c *gin.Context) {
	booking, err := h.services.Bookings.DeclineRequest(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to decline booking request")
		return
	}
	c.JSON(http.StatusOK, booking)
}
