// internal/api/handlers/chat.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/studyforge/backend/internal/models"
	"github.com/studyforge/backend/internal/services"
	"github.com/studyforge/backend/pkg/utils"
)

const chatTimeout = 120 * time.Second

type ChatHandler struct {
	chatService *services.ChatService
	logger      *logrus.Logger
}

func NewChatHandler(chatService *services.ChatService, logger *logrus.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// HandleCreateSession serves POST /api/chat/sessions
func (h *ChatHandler) HandleCreateSession(c *gin.Context) {
	var req models.CreateChatSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	courseID, err := uuid.Parse(req.CourseID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid course_id", err)
		return
	}

	session, err := h.chatService.CreateSession(courseID, req.Title)
	if err != nil {
		if errors.Is(err, services.ErrCourseNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Course not found", err)
			return
		}
		h.logger.WithError(err).Error("Failed to create chat session")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to create session", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Session created", session)
}

// HandleListSessions serves GET /api/chat/sessions?course_id=...
func (h *ChatHandler) HandleListSessions(c *gin.Context) {
	courseID, err := uuid.Parse(c.Query("course_id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid or missing course_id", err)
		return
	}

	sessions, err := h.chatService.ListSessions(courseID)
	if err != nil {
		if errors.Is(err, services.ErrCourseNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Course not found", err)
			return
		}
		h.logger.WithError(err).Error("Failed to list chat sessions")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list sessions", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Sessions retrieved", sessions)
}

// HandleGetMessages serves GET /api/chat/sessions/:id/messages
func (h *ChatHandler) HandleGetMessages(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid session id", err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	messages, err := h.chatService.GetMessages(sessionID, limit)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Session not found", err)
			return
		}
		h.logger.WithError(err).Error("Failed to load chat messages")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load messages", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Messages retrieved", messages)
}

// HandleSendMessage serves POST /api/chat/sessions/:id/messages
func (h *ChatHandler) HandleSendMessage(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid session id", err)
		return
	}

	var req models.ChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), chatTimeout)
	defer cancel()

	response, err := h.chatService.SendMessage(ctx, sessionID, req.Content, models.WebModeFromFlag(req.IncludeWeb))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidQuery):
			utils.ErrorResponse(c, http.StatusBadRequest, "Message cannot be empty", err)
		case errors.Is(err, services.ErrSessionNotFound):
			utils.ErrorResponse(c, http.StatusNotFound, "Session not found", err)
		case errors.Is(err, services.ErrCourseNotFound):
			utils.ErrorResponse(c, http.StatusNotFound, "Course not found", err)
		default:
			h.logger.WithError(err).Error("Chat message failed")
			utils.ErrorResponse(c, http.StatusInternalServerError, "Chat failed", err)
		}
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Message answered", response)
}
