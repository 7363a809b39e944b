package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"curated/internal/middleware"
	"curated/internal/models"
)

// ListExperiences - GET /api/experiences
// Без q отдаётся кешированный список, с q - поиск по индексу
func (h *Handlers) ListExperiences(c *gin.Context) {
	page, pageSize, ok := pagination(c)
	if !ok {
		return
	}

	query, category := c.Query("q"), c.Query("category")
	if query != "" || category != "" {
		res, err := h.services.Experiences.Search(c.Request.Context(), query, category, page, pageSize)
		if err != nil {
			respondError(c, err, "Failed to search experiences")
			return
		}
		c.JSON(http.StatusOK, res)
		return
	}

	exps, err := h.services.Experiences.List(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err, "Failed to list experiences")
		return
	}
	c.JSON(http.StatusOK, exps)
}

// GetExperience - GET /api/experiences/:id
func (h *Handlers) GetExperience(c *gin.Context) {
	exp, err := h.services.Experiences.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get experience")
		return
	}
	c.JSON(http.StatusOK, exp)
}

// CreateExperience - POST /api/experiences (создатель)
func (h *Handlers) CreateExperience(c *gin.Context) {
	var req models.CreateExperienceRequest
	if !bindJSON(c, &req) {
		return
	}

	exp, err := h.services.Experiences.Create(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		respondError(c, err, "Failed to create experience")
		return
	}
	c.JSON(http.StatusCreated, models.CreateExperienceResponse{ID: exp.ID})
}

// UploadMedia - POST /api/experiences/media (multipart, поле file)
func (h *Handlers) UploadMedia(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	defer f.Close()

	res, err := h.services.Experiences.UploadMedia(c.Request.Context(), middleware.UserID(c),
		file.Filename, file.Header.Get("Content-Type"), file.Size, f)
	if err != nil {
		respondError(c, err, "Failed to upload media")
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ListCreators - GET /api/creators
func (h *Handlers) ListCreators(c *gin.Context) {
	creators, err := h.services.Creators.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list creators")
		return
	}
	c.JSON(http.StatusOK, creators)
}

// GetPreferences - GET /api/me/preferences
func (h *Handlers) GetPreferences(c *gin.Context) {
	u, err := h.services.Users.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err, "Failed to get preferences")
		return
	}
	c.JSON(http.StatusOK, u.Preferences)
}

// UpdatePreferences - PUT /api/me/preferences
func (h *Handlers) UpdatePreferences(c *gin.Context) {
	var prefs models.CommunicationPreferences
	if !bindJSON(c, &prefs) {
		return
	}

	u, err := h.services.Users.UpdatePreferences(c.Request.Context(), middleware.UserID(c), prefs)
	if err != nil {
		respondError(c, err, "Failed to update preferences")
		return
	}
	c.JSON(http.StatusOK, u.Preferences)
}
