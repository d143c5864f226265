package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/studyforge/backend/internal/models"
	"github.com/studyforge/backend/internal/websearch"
)

var (
	// ErrInvalidQuery rejects requests before either search path is
	// contacted.
	ErrInvalidQuery = errors.New("query must not be empty")

	// ErrCourseNotFound rejects unknown courses before any web-search
	// budget is spent.
	ErrCourseNotFound = errors.New("course not found")
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 50
)

// Retriever is the course-material vector search collaborator.
type Retriever interface {
	Retrieve(ctx context.Context, query string, courseID uuid.UUID, limit int, category string) ([]models.SearchHit, error)
}

// WebGateway is the cached, rate-limited web search collaborator.
type WebGateway interface {
	Search(ctx context.Context, query string, limit int) ([]models.WebHit, bool, error)
}

// SearchService orchestrates hybrid retrieval: course search first, then
// a relevance-driven decision on whether to augment with web results.
type SearchService struct {
	retriever Retriever
	gateway   WebGateway
	courses   models.CourseRepository
	threshold float64
	logger    *logrus.Logger
}

func NewSearchService(
	retriever Retriever,
	gateway WebGateway,
	courses models.CourseRepository,
	threshold float64,
	logger *logrus.Logger,
) *SearchService {
	return &SearchService{
		retriever: retriever,
		gateway:   gateway,
		courses:   courses,
		threshold: threshold,
		logger:    logger,
	}
}

type HybridSearchInput struct {
	Query    string
	CourseID uuid.UUID
	Category string
	Mode     models.WebMode
	Limit    int
}

// HybridSearch runs one query through the full pipeline. Web-path
// failures degrade to course-only results; course-path failures are fatal
// for the request.
func (s *SearchService) HybridSearch(ctx context.Context, in HybridSearchInput) (*models.HybridResult, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, ErrInvalidQuery
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	exists, err := s.courses.Exists(in.CourseID)
	if err != nil {
		return nil, fmt.Errorf("course lookup failed: %w", err)
	}
	if !exists {
		return nil, ErrCourseNotFound
	}

	courseStart := time.Now()
	hits, err := s.retriever.Retrieve(ctx, query, in.CourseID, limit, in.Category)
	if err != nil {
		return nil, fmt.Errorf("course search failed: %w", err)
	}
	took := time.Since(courseStart)

	avgRelevance := AverageRelevance(hits)

	includeWeb := s.decideWeb(in.Mode, avgRelevance)
	s.logger.WithFields(logrus.Fields{
		"query":             query,
		"mode":              in.Mode.String(),
		"average_relevance": avgRelevance,
		"include_web":       includeWeb,
	}).Debug("Web search decision made")

	var webHits []models.WebHit
	usedWeb := false
	note := ""

	if includeWeb {
		webStart := time.Now()
		results, _, err := s.gateway.Search(ctx, query, limit)
		took += time.Since(webStart)

		switch {
		case err == nil:
			webHits = results
			usedWeb = true
		case errors.Is(err, websearch.ErrInvalidQuery):
			// A query the gateway refuses to run (e.g. over-length) is a
			// caller error, not a degraded web search
			return nil, err
		case errors.Is(err, websearch.ErrRateLimited):
			s.logger.WithField("query", query).Warn("Web search rate limited, degrading to course-only results")
			note = "web search rate limited"
		default:
			s.logger.WithError(err).WithField("query", query).Warn("Web search failed, degrading to course-only results")
			note = "web search unavailable"
		}
	}

	return combineResults(query, hits, webHits, avgRelevance, usedWeb, took, note), nil
}

// SemanticSearch is the course-only variant: same pipeline with the web
// path explicitly off.
func (s *SearchService) SemanticSearch(ctx context.Context, query string, courseID uuid.UUID, category string, limit int) (*models.HybridResult, error) {
	return s.HybridSearch(ctx, HybridSearchInput{
		Query:    query,
		CourseID: courseID,
		Category: category,
		Mode:     models.WebSkip,
		Limit:    limit,
	})
}

// WebOnly forces the gateway directly. Unlike the hybrid path, gateway
// errors surface to the caller here because the user explicitly demanded
// a web search.
func (s *SearchService) WebOnly(ctx context.Context, query string, limit int) (*models.WebSearchResponse, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	start := time.Now()
	hits, cached, err := s.gateway.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	return &models.WebSearchResponse{
		Results: hits,
		Source:  "web",
		Cached:  cached,
		TookMs:  time.Since(start).Milliseconds(),
	}, nil
}

func (s *SearchService) decideWeb(mode models.WebMode, avgRelevance float64) bool {
	switch mode {
	case models.WebForce:
		return true
	case models.WebSkip:
		return false
	default:
		return avgRelevance < s.threshold
	}
}

// combineResults assembles the HybridResult. Course and web groups keep
// their incoming orderings and are never interleaved; average_relevance
// reflects the course set only.
func combineResults(query string, courseHits []models.SearchHit, webHits []models.WebHit, avgRelevance float64, usedWeb bool, took time.Duration, note string) *models.HybridResult {
	if courseHits == nil {
		courseHits = []models.SearchHit{}
	}
	if webHits == nil || !usedWeb {
		webHits = []models.WebHit{}
	}

	return &models.HybridResult{
		Query:            query,
		CourseResults:    courseHits,
		WebResults:       webHits,
		TookMs:           took.Milliseconds(),
		UsedWebSearch:    usedWeb,
		AverageRelevance: avgRelevance,
		WebSearchNote:    note,
	}
}
