// internal/api/handlers/validate.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/studyforge/backend/internal/models"
	"github.com/studyforge/backend/internal/services"
	"github.com/studyforge/backend/pkg/utils"
)

const validateTimeout = 60 * time.Second

type ValidateHandler struct {
	validationService *services.ValidationService
	logger            *logrus.Logger
}

func NewValidateHandler(validationService *services.ValidationService, logger *logrus.Logger) *ValidateHandler {
	return &ValidateHandler{
		validationService: validationService,
		logger:            logger,
	}
}

// HandleValidateContent serves POST /api/validate/content
func (h *ValidateHandler) HandleValidateContent(c *gin.Context) {
	var req models.ValidateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	courseID, err := uuid.Parse(req.CourseID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid course_id", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), validateTimeout)
	defer cancel()

	result, err := h.validationService.ValidateContent(ctx, services.ValidateInput{
		CourseID:        courseID,
		Topic:           req.Topic,
		Content:         req.Content,
		CheckGrounding:  boolOrDefault(req.CheckGrounding, true),
		CheckWebSources: boolOrDefault(req.CheckWebSources, true),
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyContent):
			utils.ErrorResponse(c, http.StatusBadRequest, "Content cannot be empty", err)
		case errors.Is(err, services.ErrCourseNotFound):
			utils.ErrorResponse(c, http.StatusNotFound, "Course not found", err)
		default:
			h.logger.WithError(err).Error("Content validation failed")
			utils.ErrorResponse(c, http.StatusInternalServerError, "Validation failed", err)
		}
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Content validated", result)
}

func boolOrDefault(flag *bool, fallback bool) bool {
	if flag == nil {
		return fallback
	}
	return *flag
}
