// internal/api/handlers/courses.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/studyforge/backend/internal/models"
	"github.com/studyforge/backend/internal/services"
	"github.com/studyforge/backend/pkg/utils"
)

const ingestTimeout = 120 * time.Second

type CourseHandler struct {
	courses         models.CourseRepository
	materials       models.MaterialRepository
	materialService *services.MaterialService
	logger          *logrus.Logger
}

func NewCourseHandler(
	courses models.CourseRepository,
	materials models.MaterialRepository,
	materialService *services.MaterialService,
	logger *logrus.Logger,
) *CourseHandler {
	return &CourseHandler{
		courses:         courses,
		materials:       materials,
		materialService: materialService,
		logger:          logger,
	}
}

// HandleCreateCourse serves POST /api/courses
func (h *CourseHandler) HandleCreateCourse(c *gin.Context) {
	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	course := &models.Course{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
	}
	if err := h.courses.Create(course); err != nil {
		h.logger.WithError(err).Error("Failed to create course")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to create course", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Course created", course)
}

// HandleListCourses serves GET /api/courses
func (h *CourseHandler) HandleListCourses(c *gin.Context) {
	courses, err := h.courses.GetAll()
	if err != nil {
		h.logger.WithError(err).Error("Failed to list courses")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list courses", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Courses retrieved", courses)
}

// HandleCreateMaterial serves POST /api/courses/:id/materials
func (h *CourseHandler) HandleCreateMaterial(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid course id", err)
		return
	}

	var req models.CreateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ingestTimeout)
	defer cancel()

	material, err := h.materialService.Ingest(ctx, services.IngestInput{
		CourseID: courseID,
		Title:    req.Title,
		Content:  req.Content,
		FileType: req.FileType,
		Category: req.Category,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCourseNotFound):
			utils.ErrorResponse(c, http.StatusNotFound, "Course not found", err)
		case errors.Is(err, services.ErrEmptyMaterial):
			utils.ErrorResponse(c, http.StatusBadRequest, "Material content is empty", err)
		default:
			h.logger.WithError(err).Error("Material ingestion failed")
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to ingest material", err)
		}
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Material ingested", material)
}

// HandleListMaterials serves GET /api/courses/:id/materials
func (h *CourseHandler) HandleListMaterials(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid course id", err)
		return
	}

	materials, err := h.materials.GetByCourse(courseID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list materials")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list materials", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Materials retrieved", materials)
}

// HandleGetMaterial serves GET /api/courses/:id/materials/:materialId
func (h *CourseHandler) HandleGetMaterial(c *gin.Context) {
	materialID, err := uuid.Parse(c.Param("materialId"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid material id", err)
		return
	}

	material, err := h.materials.GetByID(materialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Material not found", err)
			return
		}
		h.logger.WithError(err).Error("Failed to get material")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get material", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Material retrieved", material)
}

// HandleDeleteMaterial serves DELETE /api/courses/:id/materials/:materialId
func (h *CourseHandler) HandleDeleteMaterial(c *gin.Context) {
	materialID, err := uuid.Parse(c.Param("materialId"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid material id", err)
		return
	}

	if err := h.materialService.Delete(materialID); err != nil {
		if errors.Is(err, services.ErrMaterialNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Material not found", err)
			return
		}
		h.logger.WithError(err).Error("Failed to delete material")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to delete material", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Material deleted", nil)
}
