package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/plantapi/internal/common"
	"github.com/dmitrijs2005/plantapi/internal/logging"
	"github.com/gin-gonic/gin"
)

const (
	msgAuthFailed   = "Authentication failed"
	msgAccessDenied = "Access denied"
	msgServerError  = "Server error"
)

func abortJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// validationMessage strips the sentinel prefix from a validation error.
func validationMessage(err error) string {
	msg := err.Error()
	prefix := common.ErrValidation.Error() + ": "
	if strings.HasPrefix(msg, prefix) {
		return strings.TrimPrefix(msg, prefix)
	}
	return "Invalid request"
}

// writeError maps service errors to status codes. Causes of 5xx responses
// are logged, never echoed.
func writeError(c *gin.Context, logger logging.Logger, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		abortJSON(c, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, common.ErrDuplicateIdentity):
		abortJSON(c, http.StatusBadRequest, "Username or email already exists")
	case errors.Is(err, common.ErrInvalidCredentials):
		abortJSON(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenBlacklisted):
		abortJSON(c, http.StatusUnauthorized, "Invalid token")
	case errors.Is(err, common.ErrForbidden):
		abortJSON(c, http.StatusForbidden, msgAccessDenied)
	case errors.Is(err, common.ErrorNotFound):
		abortJSON(c, http.StatusNotFound, "User not found")
	case errors.Is(err, common.ErrInvalidOrExpiredResetToken):
		abortJSON(c, http.StatusBadRequest, "Invalid Token")
	case errors.Is(err, common.ErrDeliveryFailed):
		logger.Error(c.Request.Context(), "notification failed", "path", c.FullPath(), "error", err.Error())
		abortJSON(c, http.StatusInternalServerError, "Email could not be sent")
	case errors.Is(err, common.ErrUploadFailed):
		logger.Error(c.Request.Context(), "upload failed", "path", c.FullPath(), "error", err.Error())
		abortJSON(c, http.StatusInternalServerError, "Failed to upload image")
	default:
		logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err.Error())
		abortJSON(c, http.StatusInternalServerError, msgServerError)
	}
}
