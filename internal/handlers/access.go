package handlers

import (
	"net/http"

	"gitrdun/backend/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AccessHandler struct {
	accessService services.AccessService
	logger        *zap.Logger
}

func NewAccessHandler(accessService services.AccessService, logger *zap.Logger) *AccessHandler {
	return &AccessHandler{accessService: accessService, logger: logger}
}

func (h *AccessHandler) CreateGrant(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input services.CreateGrantInput
	if !bindJSON(c, &input) {
		return
	}

	grant, err := h.accessService.CreateGrant(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, grant)
}

// GetGrants lists the grants held by the caller.
func (h *AccessHandler) GetGrants(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	grants, err := h.accessService.ListGrantsForGrantee(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, grants)
}

func (h *AccessHandler) UpdateGrant(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		Role string `json:"role"`
	}
	if !bindJSON(c, &input) {
		return
	}

	grant, err := h.accessService.UpdateGrantRole(c.Request.Context(), userID, c.Param("id"), input.Role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, grant)
}

func (h *AccessHandler) DeleteGrant(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.accessService.RevokeGrant(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
