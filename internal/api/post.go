package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/linkup-app/linkup/internal/geo"
	"github.com/linkup-app/linkup/internal/middleware"
	"github.com/linkup-app/linkup/internal/service"
	"go.uber.org/zap"
)

type PostHandler struct {
	posts  *service.PostService
	logger *zap.Logger
}

func NewPostHandler(posts *service.PostService, logger *zap.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

// createPostRequest is deliberately not models.Post: clients never
// control id, status, expiry, or the participant counter.
type createPostRequest struct {
	Title           string    `json:"title" binding:"required"`
	Description     string    `json:"description"`
	Category        string    `json:"category" binding:"required"`
	Lat             float64   `json:"lat" binding:"required"`
	Lng             float64   `json:"lng" binding:"required"`
	AddressText     string    `json:"address_text"`
	EventAt         time.Time `json:"event_at" binding:"required"`
	DurationMinutes int       `json:"duration_minutes"`
	CostPerPerson   float64   `json:"cost_per_person"`
	MaxParticipants int       `json:"max_participants" binding:"required"`
}

// Create handles POST /v1/posts
func (h *PostHandler) Create(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.posts.Create(c.Request.Context(), middleware.GetUserID(c), service.CreatePostInput{
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Lat:             req.Lat,
		Lng:             req.Lng,
		AddressText:     req.AddressText,
		EventAt:         req.EventAt,
		DurationMinutes: req.DurationMinutes,
		CostPerPerson:   req.CostPerPerson,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// Nearby handles GET /v1/posts/nearby?lat=&lng=&radius_km=&category=&from=&to=
func (h *PostHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng are required"})
		return
	}
	radiusKm, _ := strconv.ParseFloat(c.Query("radius_km"), 64)

	filters := geo.Filters{Category: c.Query("category")}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from timestamp"})
			return
		}
		filters.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to timestamp"})
			return
		}
		filters.To = t
	}

	posts, err := h.posts.Nearby(c.Request.Context(), geo.Point{Lat: lat, Lng: lng}, radiusKm, filters)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// Get handles GET /v1/posts/:id
func (h *PostHandler) Get(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	post, err := h.posts.Get(c.Request.Context(), postID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// Mine handles GET /v1/posts/mine
func (h *PostHandler) Mine(c *gin.Context) {
	posts, err := h.posts.Mine(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// History handles GET /v1/posts/history
func (h *PostHandler) History(c *gin.Context) {
	posts, err := h.posts.History(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// Cancel handles POST /v1/posts/:id/cancel
func (h *PostHandler) Cancel(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	if err := h.posts.Cancel(c.Request.Context(), postID, middleware.GetUserID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete handles DELETE /v1/posts/:id
func (h *PostHandler) Delete(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	if err := h.posts.Delete(c.Request.Context(), postID, middleware.GetUserID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
