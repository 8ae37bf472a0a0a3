package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/seslichat/sesli/internal/domains/history"
	"github.com/seslichat/sesli/internal/models"
	"github.com/seslichat/sesli/internal/types"
	"github.com/seslichat/sesli/pkg/Logger"
)

type HistoryHandler struct {
	historyService history.Service
	registry       *models.Registry
	logger         *Logger.Logger
}

func NewHistoryHandler(historyService history.Service, registry *models.Registry, logger *Logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		historyService: historyService,
		registry:       registry,
		logger:         logger,
	}
}

// GetHistory returns the full ordered turn list for a channel.
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	sessionID, ok := ExtractSession(c)
	if !ok {
		return
	}
	channelID := c.Param("channelID")

	turns, err := h.historyService.Load(c.Request.Context(), sessionID, channelID, false)
	if err != nil {
		if errors.Is(err, history.ErrChannelNotFound) || errors.Is(err, history.ErrUserNotFound) {
			// unknown channels read as empty, matching a fresh client
			c.JSON(http.StatusOK, HistoryResponse{History: []types.Turn{}})
			return
		}
		h.logger.Errorf("loading history for channel %s: %v", channelID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{History: turns})
}

// DeleteHistory removes one channel.
func (h *HistoryHandler) DeleteHistory(c *gin.Context) {
	sessionID, ok := ExtractSession(c)
	if !ok {
		return
	}
	channelID := c.Param("channelID")

	if err := h.historyService.DeleteChannel(c.Request.Context(), sessionID, channelID); err != nil {
		if errors.Is(err, history.ErrChannelNotFound) || errors.Is(err, history.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Channel not found"})
			return
		}
		h.logger.Errorf("deleting channel %s: %v", channelID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: "true", Message: "History deleted successfully."})
}

// DeleteAllHistory removes every channel owned by the caller.
func (h *HistoryHandler) DeleteAllHistory(c *gin.Context) {
	sessionID, ok := ExtractSession(c)
	if !ok {
		return
	}

	if err := h.historyService.DeleteAllChannels(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, history.ErrUserNotFound) {
			c.JSON(http.StatusOK, SuccessResponse{Success: "true", Message: "History deleted successfully."})
			return
		}
		h.logger.Errorf("deleting all channels for session %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: "true", Message: "History deleted successfully."})
}

// GetInitData returns the caller's channels and the known model names.
func (h *HistoryHandler) GetInitData(c *gin.Context) {
	sessionID, ok := ExtractSession(c)
	if !ok {
		return
	}

	channels, err := h.historyService.ListChannels(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Errorf("listing channels for session %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, InitDataResponse{
		Channels: channels,
		Models:   h.registry.Names(),
	})
}
