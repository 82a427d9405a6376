package handlers

import (
	"net/http"
	"time"

	"gitrdun/backend/internal/middleware"
	"gitrdun/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

const stateCookieName = "oauth_state"

type CookieConfig struct {
	Name   string
	Domain string
	Secure bool
	TTL    time.Duration
}

type AuthHandler struct {
	provider        services.IdentityProvider
	userService     services.UserService
	sessionService  services.SessionService
	cookie          CookieConfig
	successRedirect string
	logger          *zap.Logger
}

func NewAuthHandler(
	provider services.IdentityProvider,
	userService services.UserService,
	sessionService services.SessionService,
	cookie CookieConfig,
	successRedirect string,
	logger *zap.Logger,
) *AuthHandler {
	if successRedirect == "" {
		successRedirect = "/"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		provider:        provider,
		userService:     userService,
		sessionService:  sessionService,
		cookie:          cookie,
		successRedirect: successRedirect,
		logger:          logger,
	}
}

func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	if h.provider == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable", "message": "Google login is not configured"})
		return
	}

	state := uuid.Must(uuid.NewV4()).String()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, state, int((10 * time.Minute).Seconds()), "/auth", h.cookie.Domain, h.cookie.Secure, true)
	c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if h.provider == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable", "message": "Google login is not configured"})
		return
	}

	if reason := c.Query("error"); reason != "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "Google login was cancelled", "details": reason})
		return
	}

	expected, err := c.Cookie(stateCookieName)
	if err != nil || expected == "" || expected != c.Query("state") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_state", "message": "OAuth state mismatch"})
		return
	}
	c.SetCookie(stateCookieName, "", -1, "/auth", h.cookie.Domain, h.cookie.Secure, true)

	identity, err := h.provider.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	user, err := h.userService.UpsertExternalUser(c.Request.Context(), *identity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	token, _, err := h.sessionService.CreateSession(c.Request.Context(), user, services.ProviderGoogle)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("user logged in", zap.String("user_id", user.ID.String()), zap.String("provider", services.ProviderGoogle))
	h.setSessionCookie(c, token)
	c.Redirect(http.StatusFound, h.successRedirect)
}

// Login is the legacy email/password flow for provisioned accounts.
func (h *AuthHandler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &input) {
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	token, session, err := h.sessionService.CreateSession(c.Request.Context(), user, services.ProviderPassword)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.setSessionCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresAt": session.ExpiresAt,
		"user":      user,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if token := middleware.SessionToken(c, h.cookie.Name); token != "" {
		if err := h.sessionService.RevokeSession(c.Request.Context(), token); err != nil &&
			!services.IsCode(err, services.ErrCodeUnauthenticated) {
			respondError(c, h.logger, err)
			return
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", h.cookie.Domain, h.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.cookie.TTL.Seconds()), "/", h.cookie.Domain, h.cookie.Secure, true)
}
