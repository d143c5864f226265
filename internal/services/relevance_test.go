package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studyforge/backend/internal/models"
)

func hitsWithScores(scores ...float64) []models.SearchHit {
	hits := make([]models.SearchHit, len(scores))
	for i, s := range scores {
		hits[i] = models.SearchHit{RelevanceScore: s}
	}
	return hits
}

func TestAverageRelevance_EmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, AverageRelevance(nil))
	assert.Equal(t, 0.0, AverageRelevance([]models.SearchHit{}))
}

func TestAverageRelevance_Mean(t *testing.T) {
	assert.InDelta(t, 0.77, AverageRelevance(hitsWithScores(0.9, 0.8, 0.7, 0.7)), 0.0001)
	assert.InDelta(t, 0.125, AverageRelevance(hitsWithScores(0.2, 0.1, 0.1, 0.1)), 0.0001)
	assert.Equal(t, 0.5, AverageRelevance(hitsWithScores(0.5)))
}

func TestAverageRelevance_StaysInBounds(t *testing.T) {
	avg := AverageRelevance(hitsWithScores(0.0, 1.0, 0.33, 0.99))
	assert.GreaterOrEqual(t, avg, 0.0)
	assert.LessOrEqual(t, avg, 1.0)
}
