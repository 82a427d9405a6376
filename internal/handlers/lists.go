package handlers

import (
	"net/http"

	"gitrdun/backend/internal/models"
	"gitrdun/backend/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ListHandler struct {
	listService services.ListService
	logger      *zap.Logger
}

func NewListHandler(listService services.ListService, logger *zap.Logger) *ListHandler {
	return &ListHandler{listService: listService, logger: logger}
}

func (h *ListHandler) CreateList(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input services.CreateListInput
	if !bindJSON(c, &input) {
		return
	}

	list, err := h.listService.CreateList(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

func (h *ListHandler) GetLists(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	lists, err := h.listService.ResolveVisibleLists(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, lists)
}

func (h *ListHandler) GetList(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	list, err := h.listService.ResolveListByID(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ListHandler) UpdateList(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var patch models.ListPatch
	if !bindJSON(c, &patch) {
		return
	}

	list, err := h.listService.UpdateList(c.Request.Context(), userID, c.Param("id"), patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ListHandler) DeleteList(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.listService.DeleteList(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
