package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/apex-career/backend/internal/logger"
	"github.com/apex-career/backend/internal/model"
	"github.com/apex-career/backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChatHandler struct {
	svc *service.ChatService
}

func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Chat godoc
// @Summary Send a chat message
// @Description Appends to chat_id when given, otherwise opens a new chat session.
// @Tags chat
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body model.ChatRequest true "Message and optional chat_id"
// @Success 200 {object} model.ChatResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/chat/chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
		return
	}

	resp, err := h.svc.Chat(c.Request.Context(), GetAuthUser(c).ID, req)
	if err != nil {
		writeChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListChats godoc
// @Summary List chat sessions
// @Tags chat
// @Produce json
// @Security CookieAuth
// @Param limit query int false "Maximum sessions (1-100)" default(20)
// @Success 200 {array} model.ChatSummary
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/chat/chats [get]
func (h *ChatHandler) ListChats(c *gin.Context) {
	limit, ok := parseLimit(c, service.DefaultChatListLimit)
	if !ok {
		return
	}

	chats, err := h.svc.ListChats(c.Request.Context(), GetAuthUser(c).ID, limit)
	if err != nil {
		writeChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, chats)
}

// GetChat godoc
// @Summary Chat session with messages
// @Tags chat
// @Produce json
// @Security CookieAuth
// @Param chat_id path string true "Chat ID"
// @Success 200 {object} model.ChatDetail
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/chat/chats/{chat_id} [get]
func (h *ChatHandler) GetChat(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	chat, err := h.svc.GetChat(c.Request.Context(), GetAuthUser(c).ID, chatID)
	if err != nil {
		writeChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, chat)
}

// DeleteChat godoc
// @Summary Delete a chat session and its messages
// @Tags chat
// @Produce json
// @Security CookieAuth
// @Param chat_id path string true "Chat ID"
// @Success 200 {object} model.MessageResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/chat/chats/{chat_id} [delete]
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteChat(c.Request.Context(), GetAuthUser(c).ID, chatID); err != nil {
		writeChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.MessageResponse{Message: "Chat session deleted successfully"})
}

// History godoc
// @Summary Legacy chat history
// @Tags chat
// @Produce json
// @Security CookieAuth
// @Param limit query int false "Maximum messages (1-100)" default(50)
// @Success 200 {array} model.LegacyChatMessage
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/chat/chat-history [get]
func (h *ChatHandler) History(c *gin.Context) {
	limit, ok := parseLimit(c, service.DefaultChatHistoryLimit)
	if !ok {
		return
	}

	history, err := h.svc.History(c.Request.Context(), GetAuthUser(c).ID, limit)
	if err != nil {
		writeChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

func parseLimit(c *gin.Context, fallback int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid limit"})
		return 0, false
	}
	return limit, true
}

func parseChatID(c *gin.Context) (uuid.UUID, bool) {
	chatID, err := uuid.Parse(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid chat_id"})
		return uuid.Nil, false
	}
	return chatID, true
}

func writeChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidChatRequest):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrChatNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: service.ErrChatNotFound.Error()})
	default:
		logger.From(c.Request.Context()).Error("chat request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "server error"})
	}
}
