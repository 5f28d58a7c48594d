package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linkup-app/linkup/internal/auth"
	"go.uber.org/zap"
)

// AuthHandler serves the only public endpoints: OTP send and verify.
type AuthHandler struct {
	otp    *auth.OTPService
	logger *zap.Logger
}

func NewAuthHandler(otp *auth.OTPService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{otp: otp, logger: logger}
}

type sendOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
}

type verifyOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// SendOTP handles POST /v1/auth/send-otp
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req sendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.otp.SendCode(c.Request.Context(), req.Phone); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// VerifyOTP handles POST /v1/auth/verify-otp
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.otp.VerifyCode(c.Request.Context(), req.Phone, req.Code)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
