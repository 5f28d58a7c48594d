package api

import (
	"github.com/gin-gonic/gin"
	"github.com/linkup-app/linkup/internal/apperr"
	"go.uber.org/zap"
)

// respondError translates a service error into an HTTP response. The
// client sees the taxonomy code and a safe message; anything outside
// the taxonomy is logged server-side and surfaced as 503.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	code := apperr.CodeOf(err)
	if code == apperr.CodeUnavailable {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(apperr.HTTPStatus(code), gin.H{
		"code":  code,
		"error": apperr.MessageOf(err),
	})
}
