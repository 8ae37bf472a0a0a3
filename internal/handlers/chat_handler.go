package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/seslichat/sesli/internal/domains/chat"
	"github.com/seslichat/sesli/internal/domains/history"
	"github.com/seslichat/sesli/internal/models"
	"github.com/seslichat/sesli/pkg/Logger"
)

type ChatHandler struct {
	chatService    chat.Service
	historyService history.Service
	resolver       *chat.InputResolver
	registry       *models.Registry
	logger         *Logger.Logger
}

func NewChatHandler(
	chatService chat.Service,
	historyService history.Service,
	resolver *chat.InputResolver,
	registry *models.Registry,
	logger *Logger.Logger,
) *ChatHandler {
	return &ChatHandler{
		chatService:    chatService,
		historyService: historyService,
		resolver:       resolver,
		registry:       registry,
		logger:         logger,
	}
}

// ginEmitter flushes every chunk so the caller observes fragments
// incrementally, not only at the end.
type ginEmitter struct {
	w gin.ResponseWriter
}

func (e ginEmitter) Emit(chunk string) error {
	if _, err := e.w.WriteString(chunk); err != nil {
		return err
	}
	e.w.Flush()
	return nil
}

// HandleChat accepts one turn (audio file or text), validates it, then
// streams the model reply as chunked text/plain with inline framing
// records. All validation failures reject the request before any
// streaming output.
func (h *ChatHandler) HandleChat(c *gin.Context) {
	sessionID, ok := ExtractSession(c)
	if !ok {
		return
	}

	model := c.PostForm("model")
	if model == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Model parameter missing"})
		return
	}
	if !h.registry.Has(model) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Model does not exist"})
		return
	}

	channelID := c.PostForm("channel_id")
	if channelID != "" {
		exists, err := h.historyService.ChannelExists(c.Request.Context(), sessionID, channelID)
		if err != nil {
			h.logger.Errorf("channel lookup failed: %v", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
			return
		}
		if !exists {
			h.logger.Errorf("channel %s does not exist for session %s", channelID, sessionID)
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Channel does not exist."})
			return
		}
	}

	audio, err := h.readAudioFile(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Could not read uploaded file", Details: err.Error()})
		return
	}

	userInput, fromAudio, err := h.resolver.Resolve(c.Request.Context(), audio, c.PostForm("text"))
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrMissingInput):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		case errors.Is(err, chat.ErrInputResolution):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Could not extract any user input from audio or text."})
		default:
			h.logger.Errorf("input resolution failed: %v", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		}
		return
	}

	if channelID == "" {
		channelID, err = h.historyService.CreateChannel(c.Request.Context(), sessionID, userInput)
		if err != nil {
			h.logger.Errorf("channel creation failed: %v", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
			return
		}
	}

	contextHistory, err := h.historyService.Load(c.Request.Context(), sessionID, channelID, true)
	if err != nil {
		h.logger.Errorf("loading chat history failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)

	req := chat.TurnRequest{
		ChannelID: channelID,
		UserID:    sessionID,
		UserText:  userInput,
		FromAudio: fromAudio,
		History:   contextHistory,
		Model:     model,
	}
	if err := h.chatService.HandleTurn(c.Request.Context(), req, ginEmitter{w: c.Writer}); err != nil {
		// the stream already completed as far as HTTP is concerned
		h.logger.Errorf("turn for channel %s ended with error: %v", channelID, err)
	}
}

func (h *ChatHandler) readAudioFile(c *gin.Context) ([]byte, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		// no file part or no multipart body at all is fine, the text
		// field may carry the turn; anything else is a broken upload
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	f, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
