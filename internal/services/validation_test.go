package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormedContent = `# B-trees

B-trees keep data sorted for logarithmic lookups [C1].

- Nodes hold many keys
- Splits keep the tree balanced [C2]

See https://en.wikipedia.org/wiki/B-tree for background.
`

func newTestValidationService(retriever *fakeRetriever, llmClient *fakeLLM, courses *fakeCourses) *ValidationService {
	return NewValidationService(retriever, llmClient, courses, testLogger())
}

func TestValidateContent_WellFormedContentValidates(t *testing.T) {
	retriever := &fakeRetriever{hits: hitsWithScores(0.9)}
	llmClient := &fakeLLM{response: "95"}
	svc := newTestValidationService(retriever, llmClient, &fakeCourses{exists: true})

	result, err := svc.ValidateContent(context.Background(), ValidateInput{
		CourseID:        uuid.New(),
		Topic:           "b-trees",
		Content:         wellFormedContent,
		CheckGrounding:  true,
		CheckWebSources: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "validated", result.Status)
	assert.Equal(t, 100.0, result.StructureScore)
	assert.Equal(t, 100.0, result.GroundingScore)
	assert.Equal(t, 95.0, result.RelevanceScore)
	assert.True(t, result.WebSourcesValid)
	assert.GreaterOrEqual(t, result.Score, 80.0)
}

func TestValidateContent_EmptyContentRejected(t *testing.T) {
	svc := newTestValidationService(&fakeRetriever{}, &fakeLLM{}, &fakeCourses{exists: true})

	_, err := svc.ValidateContent(context.Background(), ValidateInput{
		CourseID: uuid.New(),
		Topic:    "b-trees",
		Content:  "   \n ",
	})
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestValidateContent_UnknownCourse(t *testing.T) {
	svc := newTestValidationService(&fakeRetriever{}, &fakeLLM{}, &fakeCourses{exists: false})

	_, err := svc.ValidateContent(context.Background(), ValidateInput{
		CourseID: uuid.New(),
		Topic:    "b-trees",
		Content:  "Some content.",
	})
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestValidateContent_PoorStructureScoresDown(t *testing.T) {
	retriever := &fakeRetriever{hits: hitsWithScores(0.9)}
	llmClient := &fakeLLM{response: "90"}
	svc := newTestValidationService(retriever, llmClient, &fakeCourses{exists: true})

	// No headings, no lists, fewer than five lines
	result, err := svc.ValidateContent(context.Background(), ValidateInput{
		CourseID:       uuid.New(),
		Topic:          "b-trees",
		Content:        "Short answer [C1] [C2].",
		CheckGrounding: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 70.0, result.StructureScore)
	assert.NotEmpty(t, result.Issues)
	assert.NotEmpty(t, result.Suggestions)
}

func TestValidateContent_UnclosedCodeBlockFlagged(t *testing.T) {
	llmClient := &fakeLLM{response: "90"}
	svc := newTestValidationService(&fakeRetriever{hits: hitsWithScores(0.9)}, llmClient, &fakeCourses{exists: true})

	result, err := svc.ValidateContent(context.Background(), ValidateInput{
		CourseID: uuid.New(),
		Topic:    "b-trees",
		Content:  "# Code\n\nExample:\n\n```go\nfunc main() {}\n",
	})
	require.NoError(t, err)

	found := false
	for _, issue := range result.Issues {
		if issue.Type == "error" && issue.Message == "Unclosed code block" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateContent_NoCitationsLowersGrounding(t *testing.T) {
	retriever := &fakeRetriever{hits: hitsWithScores(0.9)}
	llmClient := &fakeLLM{response: "90"}
	svc := newTestValidationService(retriever, llmClient, &fakeCourses{exists: true})

	result, err := svc.ValidateContent(context.Background(), ValidateInput{
		CourseID:       uuid.New(),
		Topic:          "b-trees",
		Content:        wellFormedWithoutCitations(),
		CheckGrounding: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 60.0, result.GroundingScore)
}

func TestValidateContent_NoMaterialsHalvesGrounding(t *testing.T) {
	retriever := &fakeRetriever{}
	llmClient := &fakeLLM{response: "90"}
	svc := newTestValidationService(retriever, llmClient, &fakeCourses{exists: true})

	result, err := svc.ValidateContent(context.Background(), ValidateInput{
		CourseID:       uuid.New(),
		Topic:          "b-trees",
		Content:        wellFormedContent,
		CheckGrounding: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, result.GroundingScore)
}

func TestValidateContent_GroundingSkippedWhenDisabled(t *testing.T) {
	retriever := &fakeRetriever{}
	llmClient := &fakeLLM{response: "90"}
	svc := newTestValidationService(retriever, llmClient, &fakeCourses{exists: true})

	result, err := svc.ValidateContent(context.Background(), ValidateInput{
		CourseID: uuid.New(),
		Topic:    "b-trees",
		Content:  wellFormedContent,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, retriever.calls)
	assert.Equal(t, 100.0, result.GroundingScore)
}

func TestValidateContent_LLMFailureUsesNeutralRelevance(t *testing.T) {
	retriever := &fakeRetriever{hits: hitsWithScores(0.9)}
	llmClient := &fakeLLM{err: errors.New("upstream timeout")}
	svc := newTestValidationService(retriever, llmClient, &fakeCourses{exists: true})

	result, err := svc.ValidateContent(context.Background(), ValidateInput{
		CourseID:       uuid.New(),
		Topic:          "b-trees",
		Content:        wellFormedContent,
		CheckGrounding: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 70.0, result.RelevanceScore)
}

func TestValidateContent_NonNumericRatingUsesNeutralRelevance(t *testing.T) {
	llmClient := &fakeLLM{response: "quite relevant, I'd say"}
	svc := newTestValidationService(&fakeRetriever{hits: hitsWithScores(0.9)}, llmClient, &fakeCourses{exists: true})

	result, err := svc.ValidateContent(context.Background(), ValidateInput{
		CourseID: uuid.New(),
		Topic:    "b-trees",
		Content:  wellFormedContent,
	})
	require.NoError(t, err)
	assert.Equal(t, 70.0, result.RelevanceScore)
}

func TestValidateContent_LowRelevanceFails(t *testing.T) {
	retriever := &fakeRetriever{hits: hitsWithScores(0.9)}
	llmClient := &fakeLLM{response: "10"}
	svc := newTestValidationService(retriever, llmClient, &fakeCourses{exists: true})

	result, err := svc.ValidateContent(context.Background(), ValidateInput{
		CourseID:       uuid.New(),
		Topic:          "b-trees",
		Content:        "Unrelated rambling.",
		CheckGrounding: true,
	})
	require.NoError(t, err)

	assert.Less(t, result.Score, 80.0)
	assert.NotEqual(t, "validated", result.Status)
}

func TestValidateContent_WebCitationsWithoutURLs(t *testing.T) {
	llmClient := &fakeLLM{response: "90"}
	svc := newTestValidationService(&fakeRetriever{hits: hitsWithScores(0.9)}, llmClient, &fakeCourses{exists: true})

	result, err := svc.ValidateContent(context.Background(), ValidateInput{
		CourseID:        uuid.New(),
		Topic:           "b-trees",
		Content:         "# Notes\n\nWeb says so [W1].\n\n- point one\n- point two\nmore\nlines",
		CheckWebSources: true,
	})
	require.NoError(t, err)
	assert.False(t, result.WebSourcesValid)
}

func TestValidateContent_UntrustedDomainFlagged(t *testing.T) {
	llmClient := &fakeLLM{response: "90"}
	svc := newTestValidationService(&fakeRetriever{hits: hitsWithScores(0.9)}, llmClient, &fakeCourses{exists: true})

	result, err := svc.ValidateContent(context.Background(), ValidateInput{
		CourseID:        uuid.New(),
		Topic:           "b-trees",
		Content:         "# Notes\n\nSee https://sketchy.example.biz/btrees [W1].\n\n- a\n- b\nmore\nlines",
		CheckWebSources: true,
	})
	require.NoError(t, err)

	flagged := false
	for _, issue := range result.Issues {
		if issue.Type == "info" && issue.Message == "Unverified source domain: sketchy.example.biz" {
			flagged = true
		}
	}
	assert.True(t, flagged)
	// URLs are present, so the citations themselves remain valid
	assert.True(t, result.WebSourcesValid)
}

func wellFormedWithoutCitations() string {
	return `# B-trees

B-trees keep data sorted for logarithmic lookups.

- Nodes hold many keys
- Splits keep the tree balanced

More lines of explanation follow here.
`
}
