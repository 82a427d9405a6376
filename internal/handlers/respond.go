package handlers

import (
	"errors"
	"net/http"
	"strings"

	"gitrdun/backend/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var statusByCode = map[services.ErrorCode]int{
	services.ErrCodeValidation:      http.StatusBadRequest,
	services.ErrCodeUnauthenticated: http.StatusUnauthorized,
	services.ErrCodeForbidden:       http.StatusForbidden,
	services.ErrCodeNotFound:        http.StatusNotFound,
	services.ErrCodeConflict:        http.StatusConflict,
}

// respondError writes the classified error. Anything unclassified is logged
// and answered with a generic 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		if status, ok := statusByCode[svcErr.Code]; ok {
			c.JSON(status, gin.H{
				"error":   strings.ToLower(string(svcErr.Code)),
				"message": svcErr.Message,
			})
			return
		}
	}

	if logger != nil {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": "An unexpected error occurred",
	})
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
			"details": err.Error(),
		})
		return false
	}
	return true
}

// currentUserID reads the identity set by the auth middleware.
func currentUserID(c *gin.Context) (string, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthenticated",
			"message": "Not authenticated. Please log in with Google.",
		})
		return "", false
	}
	userID, ok := value.(string)
	if !ok || userID == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Invalid user ID format"})
		return "", false
	}
	return userID, true
}
