package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/studyforge/backend/internal/llm"
	"github.com/studyforge/backend/internal/models"
)

// ErrSessionNotFound rejects messages to unknown chat sessions.
var ErrSessionNotFound = errors.New("chat session not found")

const chatHistoryWindow = 10

// ChatService answers messages grounded in hybrid retrieval over the
// session's course.
type ChatService struct {
	search  HybridSearcher
	llm     LLMClient
	repo    models.ChatRepository
	courses models.CourseRepository
	logger  *logrus.Logger
}

func NewChatService(
	search HybridSearcher,
	llmClient LLMClient,
	repo models.ChatRepository,
	courses models.CourseRepository,
	logger *logrus.Logger,
) *ChatService {
	return &ChatService{
		search:  search,
		llm:     llmClient,
		repo:    repo,
		courses: courses,
		logger:  logger,
	}
}

func (c *ChatService) CreateSession(courseID uuid.UUID, title string) (*models.ChatSession, error) {
	exists, err := c.courses.Exists(courseID)
	if err != nil {
		return nil, fmt.Errorf("course lookup failed: %w", err)
	}
	if !exists {
		return nil, ErrCourseNotFound
	}

	session := &models.ChatSession{
		CourseID: courseID,
		Title:    title,
	}
	if err := c.repo.CreateSession(session); err != nil {
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}
	return session, nil
}

// ListSessions returns a course's chat sessions, most recently active
// first.
func (c *ChatService) ListSessions(courseID uuid.UUID) ([]models.ChatSession, error) {
	exists, err := c.courses.Exists(courseID)
	if err != nil {
		return nil, fmt.Errorf("course lookup failed: %w", err)
	}
	if !exists {
		return nil, ErrCourseNotFound
	}

	sessions, err := c.repo.GetSessionsByCourse(courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat sessions: %w", err)
	}
	return sessions, nil
}

func (c *ChatService) GetMessages(sessionID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	if _, err := c.getSession(sessionID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	return c.repo.GetMessages(sessionID, limit)
}

// SendMessage stores the user message, retrieves context through the
// hybrid pipeline, and persists the attributed assistant reply.
func (c *ChatService) SendMessage(ctx context.Context, sessionID uuid.UUID, content string, mode models.WebMode) (*models.ChatMessageResponse, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrInvalidQuery
	}

	session, err := c.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	userMsg := &models.ChatMessage{
		SessionID: sessionID,
		Role:      "user",
		Content:   content,
	}
	if err := c.repo.AddMessage(userMsg); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}

	history, err := c.repo.GetMessages(sessionID, chatHistoryWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	result, err := c.search.HybridSearch(ctx, HybridSearchInput{
		Query:    content,
		CourseID: session.CourseID,
		Mode:     mode,
		Limit:    5,
	})
	if err != nil {
		return nil, err
	}

	messages := c.buildMessages(history, content, result)

	raw, err := c.llm.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	reply, usage := ParseSourceUsage(raw)
	attribution := BuildAttribution(result, usage)

	assistantMsg := &models.ChatMessage{
		SessionID:     sessionID,
		Role:          "assistant",
		Content:       reply,
		Sources:       models.Attribution(attribution),
		UsedWebSearch: result.UsedWebSearch,
	}
	if err := c.repo.AddMessage(assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to store assistant message: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"session_id":      sessionID,
		"used_web_search": result.UsedWebSearch,
		"course_sources":  len(attribution.Course),
		"web_sources":     len(attribution.Web),
	}).Info("Chat message answered")

	return &models.ChatMessageResponse{
		SessionID:     sessionID.String(),
		Message:       *assistantMsg,
		Sources:       attribution,
		UsedWebSearch: result.UsedWebSearch,
	}, nil
}

func (c *ChatService) getSession(sessionID uuid.UUID) (*models.ChatSession, error) {
	session, err := c.repo.GetSession(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}
	return session, nil
}

const chatSystemPrompt = `You are a study assistant for a university course.
Answer using the provided course material and web sources. Course sources
are labeled C1, C2, ... and web sources W1, W2, ... Prefer course
materials; use web sources for topics the materials do not cover. If the
sources do not answer the question, say so.

After your answer, on a final line by itself, report which sources you
actually used in the form:
SOURCES_USED: C1, W2`

func (c *ChatService) buildMessages(history []models.ChatMessage, content string, result *models.HybridResult) []llm.ChatMessage {
	messages := []llm.ChatMessage{
		{Role: "system", Content: chatSystemPrompt},
	}

	// The just-stored user message sits at the end of the history; it is
	// re-sent below with its retrieval context. Earlier turns stay even
	// when the user repeats a question verbatim.
	if n := len(history); n > 0 {
		if last := history[n-1]; last.Role == "user" && last.Content == content {
			history = history[:n-1]
		}
	}

	for _, msg := range history {
		messages = append(messages, llm.ChatMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	messages = append(messages, llm.ChatMessage{
		Role:    "user",
		Content: buildContextPrompt(content, result),
	})

	return messages
}
