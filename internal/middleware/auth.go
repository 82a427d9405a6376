package middleware

import (
	"net/http"
	"strings"

	"gitrdun/backend/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ContextUserID    = "user_id"
	ContextUserRole  = "user_role"
	ContextSessionID = "session_id"
	ContextToken     = "session_token"
)

// SessionToken extracts the session token from the cookie or a bearer header.
func SessionToken(c *gin.Context, cookieName string) string {
	if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}

// RequireAuth resolves the caller from their session and aborts with 401 when there is none.
func RequireAuth(sessions services.SessionService, cookieName string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c, cookieName)
		if token == "" {
			abortUnauthenticated(c)
			return
		}

		session, err := sessions.ResolveSession(c.Request.Context(), token)
		if err != nil {
			if !services.IsCode(err, services.ErrCodeUnauthenticated) {
				if logger != nil {
					logger.Error("session lookup failed", zap.Error(err))
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				return
			}
			abortUnauthenticated(c)
			return
		}

		c.Set(ContextUserID, session.UserID.String())
		c.Set(ContextUserRole, session.Role)
		c.Set(ContextSessionID, session.ID)
		c.Set(ContextToken, token)
		c.Next()
	}
}

// RequireAdmin re-reads the caller's profile so a demoted admin loses access immediately.
func RequireAdmin(users services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if userID == "" {
			abortUnauthenticated(c)
			return
		}

		user, err := users.GetUser(c.Request.Context(), userID)
		if err != nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Admin access required",
			})
			return
		}
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthenticated",
		"message": "Not authenticated. Please log in with Google.",
	})
}
