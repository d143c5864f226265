// internal/api/handlers/search.go
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
	"github.com/studyforge/backend/internal/websearch"
	"github.com/studyforge/backend/pkg/utils"
)

const searchTimeout = 30 * time.Second

type SearchHandler struct {
	searchService *services.SearchService
	queryRepo     models.SearchQueryRepository
	logger        *logrus.Logger
}

func NewSearchHandler(
	searchService *services.SearchService,
	queryRepo models.SearchQueryRepository,
	logger *logrus.Logger,
) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		queryRepo:     queryRepo,
		logger:        logger,
	}
}

// HandleHybridSearch serves POST /api/search/hybrid
func (h *SearchHandler) HandleHybridSearch(c *gin.Context) {
	var req models.HybridSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	courseID, err := uuid.Parse(req.CourseID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid course_id", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), searchTimeout)
	defer cancel()

	start := time.Now()
	result, err := h.searchService.HybridSearch(ctx, services.HybridSearchInput{
		Query:    req.Query,
		CourseID: courseID,
		Category: req.Category,
		Mode:     models.WebModeFromFlag(req.IncludeWeb),
		Limit:    req.Limit,
	})
	if err != nil {
		h.respondSearchError(c, err)
		return
	}

	go h.trackSearchQuery(req.Query, &courseID, len(result.CourseResults)+len(result.WebResults), result.UsedWebSearch, time.Since(start), c.Copy())

	utils.SuccessResponse(c, http.StatusOK, "Search completed", result)
}

// HandleSemanticSearch serves POST /api/search/semantic
func (h *SearchHandler) HandleSemanticSearch(c *gin.Context) {
	var req models.SemanticSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	courseID, err := uuid.Parse(req.CourseID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid course_id", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), searchTimeout)
	defer cancel()

	start := time.Now()
	result, err := h.searchService.SemanticSearch(ctx, req.Query, courseID, req.Category, req.Limit)
	if err != nil {
		h.respondSearchError(c, err)
		return
	}

	go h.trackSearchQuery(req.Query, &courseID, len(result.CourseResults), false, time.Since(start), c.Copy())

	utils.SuccessResponse(c, http.StatusOK, "Search completed", result)
}

// HandleWebSearch serves POST /api/search/web. Unlike the hybrid path,
// rate-limit and provider failures surface directly here.
func (h *SearchHandler) HandleWebSearch(c *gin.Context) {
	var req models.WebSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), searchTimeout)
	defer cancel()

	start := time.Now()
	result, err := h.searchService.WebOnly(ctx, req.Query, req.Limit)
	if err != nil {
		switch {
		case errors.Is(err, websearch.ErrInvalidQuery):
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query", err)
		case errors.Is(err, websearch.ErrRateLimited):
			utils.ErrorResponse(c, http.StatusTooManyRequests, "Web search rate limit exceeded", err)
		case errors.Is(err, websearch.ErrUnavailable):
			utils.ErrorResponse(c, http.StatusBadGateway, "Web search unavailable", err)
		default:
			h.logger.WithError(err).Error("Web search failed")
			utils.ErrorResponse(c, http.StatusInternalServerError, "Web search failed", err)
		}
		return
	}

	go h.trackSearchQuery(req.Query, nil, len(result.Results), true, time.Since(start), c.Copy())

	utils.SuccessResponse(c, http.StatusOK, "Search completed", result)
}

// HandleRecentSearches serves GET /api/analytics/searches
func (h *SearchHandler) HandleRecentSearches(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	queries, err := h.queryRepo.GetRecent(limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load search analytics")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load recent searches", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Recent searches retrieved", queries)
}

func (h *SearchHandler) respondSearchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidQuery):
		utils.ErrorResponse(c, http.StatusBadRequest, "Query cannot be empty", err)
	case errors.Is(err, websearch.ErrInvalidQuery):
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query", err)
	case errors.Is(err, services.ErrCourseNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "Course not found", err)
	default:
		h.logger.WithError(err).Error("Search failed")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Search failed", err)
	}
}

func (h *SearchHandler) trackSearchQuery(query string, courseID *uuid.UUID, resultsCount int, usedWeb bool, took time.Duration, c *gin.Context) {
	record := &models.SearchQuery{
		QueryText:       query,
		CourseID:        courseID,
		UserSession:     getUserSession(c),
		ResultsCount:    resultsCount,
		UsedWebSearch:   usedWeb,
		SearchTimestamp: time.Now(),
		ResponseTimeMs:  int(took.Milliseconds()),
		UserAgent:       c.GetHeader("User-Agent"),
		IPAddress:       c.ClientIP(),
	}

	if err := h.queryRepo.Create(record); err != nil {
		h.logger.WithError(err).Error("Failed to track search query")
	}
}

func getUserSession(c *gin.Context) string {
	if session := c.GetHeader("X-Session-ID"); session != "" {
		return session
	}

	// Basic fingerprint from IP + User-Agent
	return utils.GenerateSessionID(c.ClientIP() + c.GetHeader("User-Agent"))
}
