package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/studyforge/backend/internal/llm"
	"github.com/studyforge/backend/internal/models"
)

// ErrEmptyContent rejects validation requests with nothing to validate.
var ErrEmptyContent = errors.New("content must not be empty")

// Domains whose pages count as credible web sources without manual review.
var trustedSourceDomains = []string{
	"wikipedia.org", "docs.python.org", "developer.mozilla.org",
	"stackoverflow.com", "github.com", "microsoft.com",
	"oracle.com", "w3schools.com", "geeksforgeeks.org",
	"tutorialspoint.com", ".edu",
}

var (
	courseCitationPattern = regexp.MustCompile(`\[C\d+\]`)
	webCitationPattern    = regexp.MustCompile(`\[W\d+\]`)
	urlPattern            = regexp.MustCompile(`https?://([^\s)]+)`)
)

// ValidationService scores generated content on structure, topic
// relevance, and grounding in course materials. Scores are 0-100; the
// overall score weights grounding highest because ungrounded content is
// the main failure mode of web-augmented generation.
type ValidationService struct {
	retriever Retriever
	llm       LLMClient
	courses   models.CourseRepository
	logger    *logrus.Logger
}

func NewValidationService(
	retriever Retriever,
	llmClient LLMClient,
	courses models.CourseRepository,
	logger *logrus.Logger,
) *ValidationService {
	return &ValidationService{
		retriever: retriever,
		llm:       llmClient,
		courses:   courses,
		logger:    logger,
	}
}

type ValidateInput struct {
	CourseID        uuid.UUID
	Topic           string
	Content         string
	CheckGrounding  bool
	CheckWebSources bool
}

func (v *ValidationService) ValidateContent(ctx context.Context, in ValidateInput) (*models.ContentValidationResponse, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, ErrEmptyContent
	}

	exists, err := v.courses.Exists(in.CourseID)
	if err != nil {
		return nil, fmt.Errorf("course lookup failed: %w", err)
	}
	if !exists {
		return nil, ErrCourseNotFound
	}

	result := &models.ContentValidationResponse{
		GroundingScore:  100,
		WebSourcesValid: true,
		Issues:          []models.ValidationIssue{},
	}

	structureScore, structureIssues := checkStructure(in.Content)
	result.StructureScore = structureScore
	result.Issues = append(result.Issues, structureIssues...)

	relevanceScore, relevanceIssues := v.checkRelevance(ctx, in.Content, in.Topic)
	result.RelevanceScore = relevanceScore
	result.Issues = append(result.Issues, relevanceIssues...)

	if in.CheckGrounding {
		groundingScore, groundingIssues := v.checkGrounding(ctx, in.Content, in.Topic, in.CourseID)
		result.GroundingScore = groundingScore
		result.Issues = append(result.Issues, groundingIssues...)
	}

	if in.CheckWebSources {
		valid, webIssues := checkWebCitations(in.Content)
		result.WebSourcesValid = valid
		result.Issues = append(result.Issues, webIssues...)
	}

	result.Score = result.GroundingScore*0.4 + result.StructureScore*0.3 + result.RelevanceScore*0.3
	switch {
	case result.Score >= 80:
		result.Status = "validated"
	case result.Score >= 50:
		result.Status = "warning"
	default:
		result.Status = "failed"
	}

	result.Suggestions = collectSuggestions(result.Issues)

	v.logger.WithFields(logrus.Fields{
		"course_id": in.CourseID,
		"status":    result.Status,
		"score":     result.Score,
	}).Info("Content validated")

	return result, nil
}

// checkStructure scores formatting: headings, enough body text, lists,
// and balanced code fences.
func checkStructure(content string) (float64, []models.ValidationIssue) {
	var issues []models.ValidationIssue
	score := 100.0

	if !strings.Contains(content, "#") {
		issues = append(issues, models.ValidationIssue{
			Type:       "warning",
			Message:    "No headings found",
			Suggestion: "Add section headings for better organization",
		})
		score -= 10
	}

	lines := strings.Split(content, "\n")
	nonEmpty := 0
	hasLists := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			nonEmpty++
		}
		if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "1.") {
			hasLists = true
		}
	}

	if nonEmpty < 5 {
		issues = append(issues, models.ValidationIssue{
			Type:       "warning",
			Message:    "Content seems too short",
			Suggestion: "Add more detail and explanations",
		})
		score -= 15
	}

	if !hasLists {
		issues = append(issues, models.ValidationIssue{
			Type:       "info",
			Message:    "No lists found",
			Suggestion: "Consider using bullet points for key concepts",
		})
		score -= 5
	}

	if strings.Count(content, "```")%2 != 0 {
		issues = append(issues, models.ValidationIssue{
			Type:       "error",
			Message:    "Unclosed code block",
			Suggestion: "Close all code blocks with ```",
		})
		score -= 20
	}

	if score < 0 {
		score = 0
	}
	return score, issues
}

const relevanceCheckLimit = 2000

// checkRelevance asks the LLM to rate topic relevance 0-100. A failed or
// unparseable check scores a neutral 70 rather than penalizing content.
func (v *ValidationService) checkRelevance(ctx context.Context, content, topic string) (float64, []models.ValidationIssue) {
	excerpt := content
	if len(excerpt) > relevanceCheckLimit {
		excerpt = excerpt[:relevanceCheckLimit]
	}

	prompt := fmt.Sprintf(`Rate how relevant this content is to the topic on a scale of 0-100.

TOPIC: %s

CONTENT:
%s

Respond with ONLY a number between 0 and 100, nothing else.`, topic, excerpt)

	raw, err := v.llm.Complete(ctx, []llm.ChatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		v.logger.WithError(err).Warn("Relevance check failed, using neutral score")
		return 70, nil
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		v.logger.WithField("response", raw).Warn("Relevance check returned a non-numeric rating")
		return 70, nil
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	var issues []models.ValidationIssue
	switch {
	case score < 50:
		issues = append(issues, models.ValidationIssue{
			Type:       "error",
			Message:    fmt.Sprintf("Content has low relevance to topic (%.0f%%)", score),
			Suggestion: "Regenerate with clearer focus on the topic",
		})
	case score < 70:
		issues = append(issues, models.ValidationIssue{
			Type:       "warning",
			Message:    fmt.Sprintf("Content could be more focused on topic (%.0f%%)", score),
			Suggestion: "Consider adding more topic-specific information",
		})
	}

	return score, issues
}

// checkGrounding verifies the course has materials on the topic and that
// the content cites them using the [C1] style labels generation emits.
func (v *ValidationService) checkGrounding(ctx context.Context, content, topic string, courseID uuid.UUID) (float64, []models.ValidationIssue) {
	hits, err := v.retriever.Retrieve(ctx, topic, courseID, 5, "")
	if err != nil {
		v.logger.WithError(err).Warn("Grounding retrieval failed")
		hits = nil
	}

	if len(hits) == 0 {
		return 50, []models.ValidationIssue{{
			Type:       "warning",
			Message:    "No course materials found for grounding check",
			Suggestion: "Content may not be based on course materials",
		}}
	}

	citations := len(courseCitationPattern.FindAllString(content, -1))
	switch {
	case citations == 0:
		return 60, []models.ValidationIssue{{
			Type:       "warning",
			Message:    "No course material citations found",
			Suggestion: "Add [C1] style citations to course materials",
		}}
	case citations < 2:
		return 80, []models.ValidationIssue{{
			Type:       "info",
			Message:    "Few course material citations",
			Suggestion: "Consider adding more references to course materials",
		}}
	default:
		return 100, nil
	}
}

// checkWebCitations flags untrusted source domains and web citation
// labels that arrive without any URL to verify.
func checkWebCitations(content string) (bool, []models.ValidationIssue) {
	var issues []models.ValidationIssue
	valid := true

	urls := urlPattern.FindAllStringSubmatch(content, -1)
	for _, match := range urls {
		domain := strings.ToLower(strings.SplitN(match[1], "/", 2)[0])

		trusted := false
		for _, t := range trustedSourceDomains {
			if strings.Contains(domain, t) || strings.HasSuffix(domain, t) {
				trusted = true
				break
			}
		}
		if !trusted {
			issues = append(issues, models.ValidationIssue{
				Type:       "info",
				Message:    fmt.Sprintf("Unverified source domain: %s", domain),
				Suggestion: "Verify the credibility of this source",
			})
		}
	}

	webCitations := len(webCitationPattern.FindAllString(content, -1))
	if webCitations > 0 && len(urls) == 0 {
		issues = append(issues, models.ValidationIssue{
			Type:       "warning",
			Message:    "Web citations without URLs",
			Suggestion: "Include source URLs for web citations",
		})
		valid = false
	}

	return valid, issues
}

func collectSuggestions(issues []models.ValidationIssue) []string {
	seen := make(map[string]bool)
	suggestions := []string{}
	for _, issue := range issues {
		if issue.Suggestion == "" || seen[issue.Suggestion] {
			continue
		}
		seen[issue.Suggestion] = true
		suggestions = append(suggestions, issue.Suggestion)
	}
	return suggestions
}
