package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linkup-app/linkup/internal/apperr"
	"github.com/linkup-app/linkup/internal/middleware"
	"github.com/linkup-app/linkup/internal/repository"
	"go.uber.org/zap"
)

type UserHandler struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func NewUserHandler(users repository.UserRepository, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type updateProfileRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"omitempty,email"`
}

// Me handles GET /v1/users/me
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, apperr.Wrap(apperr.CodeUnavailable, "could not fetch profile", err))
		return
	}
	if user == nil {
		respondError(c, h.logger, apperr.New(apperr.CodeNotFound, "user not found"))
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe handles PUT /v1/users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), req.Name, req.Email)
	if err != nil {
		respondError(c, h.logger, apperr.Wrap(apperr.CodeUnavailable, "could not update profile", err))
		return
	}
	if user == nil {
		respondError(c, h.logger, apperr.New(apperr.CodeNotFound, "user not found"))
		return
	}
	c.JSON(http.StatusOK, user)
}
