package services

import (
	"github.com/studyforge/backend/internal/models"
)

// AverageRelevance estimates how confidently course materials answer a
// query: the arithmetic mean of the hit relevance scores, 0 for an empty
// set. Always in [0,1].
func AverageRelevance(hits []models.SearchHit) float64 {
	if len(hits) == 0 {
		return 0
	}

	var sum float64
	for _, hit := range hits {
		sum += hit.RelevanceScore
	}
	return sum / float64(len(hits))
}
