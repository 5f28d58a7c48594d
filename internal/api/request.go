package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/linkup-app/linkup/internal/middleware"
	"github.com/linkup-app/linkup/internal/service"
	"go.uber.org/zap"
)

type RequestHandler struct {
	requests *service.RequestService
	logger   *zap.Logger
}

func NewRequestHandler(requests *service.RequestService, logger *zap.Logger) *RequestHandler {
	return &RequestHandler{requests: requests, logger: logger}
}

type joinRequestBody struct {
	Message string `json:"message"`
}

type decideRequestBody struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// Join handles POST /v1/posts/:id/request
func (h *RequestHandler) Join(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	// Body is optional; the intro message is a nicety.
	var body joinRequestBody
	_ = c.ShouldBindJSON(&body)

	req, err := h.requests.RequestToJoin(c.Request.Context(), postID, middleware.GetUserID(c), body.Message)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// List handles GET /v1/posts/:id/requests (host only)
func (h *RequestHandler) List(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	requests, err := h.requests.List(c.Request.Context(), postID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// MyRequest handles GET /v1/posts/:id/my-request
func (h *RequestHandler) MyRequest(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	req, err := h.requests.MyRequest(c.Request.Context(), postID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	// nil serializes to null — "no request yet" is a valid answer.
	c.JSON(http.StatusOK, req)
}

// Mine handles GET /v1/requests/mine
func (h *RequestHandler) Mine(c *gin.Context) {
	requests, err := h.requests.MyRequests(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// Approve handles POST /v1/posts/:id/approve (host only)
func (h *RequestHandler) Approve(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}
	var body decideRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}

	chat, err := h.requests.Approve(c.Request.Context(), postID, body.UserID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "chat_id": chat.ID})
}

// Reject handles POST /v1/posts/:id/reject (host only)
func (h *RequestHandler) Reject(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}
	var body decideRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}

	if err := h.requests.Reject(c.Request.Context(), postID, body.UserID, middleware.GetUserID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
