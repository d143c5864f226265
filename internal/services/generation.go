package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/studyforge/backend/internal/llm"
	"github.com/studyforge/backend/internal/models"
)

var (
	// ErrInvalidGenType rejects unknown generation types.
	ErrInvalidGenType = errors.New("invalid generation type")

	// ErrGenerationNotFound rejects lookups of unknown generated content.
	ErrGenerationNotFound = errors.New("generated content not found")
)

const defaultHistoryLimit = 20

// LLMClient is the generation collaborator.
type LLMClient interface {
	Complete(ctx context.Context, messages []llm.ChatMessage) (string, error)
}

// HybridSearcher is the retrieval step used by generation and chat.
type HybridSearcher interface {
	HybridSearch(ctx context.Context, in HybridSearchInput) (*models.HybridResult, error)
}

// GenerationService produces theory content (notes, summaries, study
// guides) grounded in hybrid retrieval.
type GenerationService struct {
	search HybridSearcher
	llm    LLMClient
	repo   models.GeneratedContentRepository
	logger *logrus.Logger
}

func NewGenerationService(
	search HybridSearcher,
	llmClient LLMClient,
	repo models.GeneratedContentRepository,
	logger *logrus.Logger,
) *GenerationService {
	return &GenerationService{
		search: search,
		llm:    llmClient,
		repo:   repo,
		logger: logger,
	}
}

type GenerateInput struct {
	CourseID uuid.UUID
	Topic    string
	GenType  string
	Mode     models.WebMode
}

var genTypeInstructions = map[string]string{
	"notes":       "Write thorough, well-structured study notes on the topic.",
	"summary":     "Write a concise summary of the topic covering only the essential points.",
	"study_guide": "Write a study guide with key concepts, definitions, and practice questions.",
}

func (g *GenerationService) Generate(ctx context.Context, in GenerateInput) (*models.GenerateResponse, error) {
	genType := in.GenType
	if genType == "" {
		genType = "notes"
	}
	instruction, ok := genTypeInstructions[genType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidGenType, in.GenType)
	}

	start := time.Now()

	result, err := g.search.HybridSearch(ctx, HybridSearchInput{
		Query:    in.Topic,
		CourseID: in.CourseID,
		Mode:     in.Mode,
		Limit:    10,
	})
	if err != nil {
		return nil, err
	}

	g.logger.WithFields(logrus.Fields{
		"topic":          in.Topic,
		"gen_type":       genType,
		"course_results": len(result.CourseResults),
		"web_results":    len(result.WebResults),
	}).Info("Generating content")

	messages := []llm.ChatMessage{
		{Role: "system", Content: generationSystemPrompt(instruction)},
		{Role: "user", Content: buildContextPrompt(in.Topic, result)},
	}

	raw, err := g.llm.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	content, usage := ParseSourceUsage(raw)
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("generation produced empty content")
	}

	attribution := BuildAttribution(result, usage)
	tookMs := time.Since(start).Milliseconds()

	record := &models.GeneratedContent{
		CourseID:      in.CourseID,
		Topic:         in.Topic,
		GenType:       genType,
		Content:       content,
		Sources:       models.Attribution(attribution),
		UsedWebSearch: result.UsedWebSearch,
		TookMs:        tookMs,
	}
	if err := g.repo.Create(record); err != nil {
		return nil, fmt.Errorf("failed to persist generated content: %w", err)
	}

	return &models.GenerateResponse{
		ID:            record.ID.String(),
		Topic:         in.Topic,
		GenType:       genType,
		Content:       content,
		Sources:       attribution,
		UsedWebSearch: result.UsedWebSearch,
		TookMs:        tookMs,
	}, nil
}

// Get returns one persisted generation with its attribution.
func (g *GenerationService) Get(id uuid.UUID) (*models.GeneratedContent, error) {
	content, err := g.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGenerationNotFound
		}
		return nil, fmt.Errorf("generation lookup failed: %w", err)
	}
	return content, nil
}

// History lists a course's persisted generations, newest first.
func (g *GenerationService) History(courseID uuid.UUID, limit int) ([]models.GeneratedContent, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	contents, err := g.repo.GetByCourse(courseID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load generation history: %w", err)
	}
	return contents, nil
}

func generationSystemPrompt(instruction string) string {
	return instruction + `

Ground your answer in the numbered sources provided. Course sources are
labeled C1, C2, ... and web sources W1, W2, ...

After your answer, on a final line by itself, report which sources you
actually used in the form:
SOURCES_USED: C1, C3, W2`
}

// buildContextPrompt renders the two retrieval groups as numbered,
// clearly separated blocks so provenance survives into the prompt.
func buildContextPrompt(topic string, result *models.HybridResult) string {
	var b strings.Builder

	b.WriteString("Question or topic: ")
	b.WriteString(topic)
	b.WriteString("\n\n")

	if len(result.CourseResults) > 0 {
		b.WriteString("Course material sources:\n")
		for i, hit := range result.CourseResults {
			fmt.Fprintf(&b, "[C%d] %s (%s)\n%s\n\n", i+1, hit.MaterialTitle, hit.FileType, hit.Content)
		}
	} else {
		b.WriteString("No course material sources were found for this topic.\n\n")
	}

	if len(result.WebResults) > 0 {
		b.WriteString("Web sources:\n")
		for i, hit := range result.WebResults {
			fmt.Fprintf(&b, "[W%d] %s (%s)\n%s\nURL: %s\n\n", i+1, hit.Title, hit.SourceDomain, hit.Snippet, hit.URL)
		}
	}

	return strings.TrimSpace(b.String())
}
