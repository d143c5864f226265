package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/studyforge/backend/internal/models"
)

// Embedder turns query text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorRetriever is the course-material search collaborator: it embeds
// the query and runs a pgvector similarity search scoped to the course.
type VectorRetriever struct {
	chunks   models.ChunkRepository
	embedder Embedder
	logger   *logrus.Logger
}

func NewVectorRetriever(chunks models.ChunkRepository, embedder Embedder, logger *logrus.Logger) *VectorRetriever {
	return &VectorRetriever{
		chunks:   chunks,
		embedder: embedder,
		logger:   logger,
	}
}

func (r *VectorRetriever) Retrieve(ctx context.Context, query string, courseID uuid.UUID, limit int, category string) ([]models.SearchHit, error) {
	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	hits, err := r.chunks.SimilaritySearch(ctx, courseID, embedding, limit, category)
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"query":   query,
		"course":  courseID,
		"results": len(hits),
	}).Debug("Course vector search completed")

	return hits, nil
}
