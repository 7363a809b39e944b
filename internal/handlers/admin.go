package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"curated/internal/middleware"
	"curated/internal/models"
)

// Admin handlers. Все маршруты за RequireRole("admin").

func (h *Handlers) ApproveExperience(c *gin.Context) {
	exp, err := h.services.Admin.ApproveExperience(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to approve experience")
		return
	}
	c.JSON(http.StatusOK, exp)
}

func (h *Handlers) RejectExperience(c *gin.Context) {
	var req models.ModerationRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	if err := h.services.Admin.RejectExperience(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Reason); err != nil {
		respondError(c, err, "Failed to reject experience")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) DeleteExperience(c *gin.Context) {
	if err := h.services.Admin.DeleteExperience(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete experience")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) UpdateUserRole(c *gin.Context) {
	var req models.UpdateRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.services.Admin.UpdateRole(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Role); err != nil {
		respondError(c, err, "Failed to update role")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) DeleteUser(c *gin.Context) {
	if err := h.services.Admin.DeleteUser(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete user")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) ListAdminActions(c *gin.Context) {
	actions, err := h.services.Admin.ListActions(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list admin actions")
		return
	}
	c.JSON(http.StatusOK, actions)
}

type reorderSpotlightsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,dive,uuid"`
}

// ReorderSpotlights - PUT /api/admin/spotlights/order
func (h *Handlers) ReorderSpotlights(c *gin.Context) {
	var req reorderSpotlightsRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.services.Admin.ReorderSpotlights(c.Request.Context(), middleware.UserID(c), req.IDs); err != nil {
		respondError(c, err, "Failed to reorder spotlights")
		return
	}
	c.Status(http.StatusNoContent)
}
