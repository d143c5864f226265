// internal/api/handlers/generate.go
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

const generateTimeout = 120 * time.Second

type GenerateHandler struct {
	generationService *services.GenerationService
	logger            *logrus.Logger
}

func NewGenerateHandler(generationService *services.GenerationService, logger *logrus.Logger) *GenerateHandler {
	return &GenerateHandler{
		generationService: generationService,
		logger:            logger,
	}
}

// HandleGenerateTheory serves POST /api/generate/theory
func (h *GenerateHandler) HandleGenerateTheory(c *gin.Context) {
	var req models.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	courseID, err := uuid.Parse(req.CourseID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid course_id", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), generateTimeout)
	defer cancel()

	result, err := h.generationService.Generate(ctx, services.GenerateInput{
		CourseID: courseID,
		Topic:    req.Topic,
		GenType:  req.GenType,
		Mode:     models.WebModeFromFlag(req.UseWeb),
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidQuery):
			utils.ErrorResponse(c, http.StatusBadRequest, "Topic cannot be empty", err)
		case errors.Is(err, services.ErrInvalidGenType):
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid generation type", err)
		case errors.Is(err, services.ErrCourseNotFound):
			utils.ErrorResponse(c, http.StatusNotFound, "Course not found", err)
		default:
			h.logger.WithError(err).Error("Content generation failed")
			utils.ErrorResponse(c, http.StatusInternalServerError, "Generation failed", err)
		}
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Content generated", result)
}

// HandleGenerationStatus serves GET /api/generate/status/:id
func (h *GenerateHandler) HandleGenerationStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid generation id", err)
		return
	}

	content, err := h.generationService.Get(id)
	if err != nil {
		if errors.Is(err, services.ErrGenerationNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Generation not found", err)
			return
		}
		h.logger.WithError(err).Error("Failed to load generated content")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load generation", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Generation retrieved", content)
}

// HandleGenerationHistory serves GET /api/generate/history/:courseId
func (h *GenerateHandler) HandleGenerationHistory(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("courseId"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid course id", err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	contents, err := h.generationService.History(courseID, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load generation history")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load history", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "History retrieved", contents)
}
