package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/studyforge/backend/internal/models"
)

type fakeChatRepo struct {
	sessions map[uuid.UUID]*models.ChatSession
	messages []models.ChatMessage
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{sessions: make(map[uuid.UUID]*models.ChatSession)}
}

func (f *fakeChatRepo) CreateSession(session *models.ChatSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeChatRepo) GetSession(id uuid.UUID) (*models.ChatSession, error) {
	session, ok := f.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return session, nil
}

func (f *fakeChatRepo) GetSessionsByCourse(courseID uuid.UUID) ([]models.ChatSession, error) {
	var out []models.ChatSession
	for _, session := range f.sessions {
		if session.CourseID == courseID {
			out = append(out, *session)
		}
	}
	return out, nil
}

func (f *fakeChatRepo) AddMessage(message *models.ChatMessage) error {
	message.ID = uint(len(f.messages) + 1)
	f.messages = append(f.messages, *message)
	return nil
}

func (f *fakeChatRepo) GetMessages(sessionID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	var out []models.ChatMessage
	for _, msg := range f.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func newTestChatService(searcher *fakeSearcher, llmClient *fakeLLM, repo *fakeChatRepo, courses *fakeCourses) *ChatService {
	return NewChatService(searcher, llmClient, repo, courses, testLogger())
}

func TestCreateSession_UnknownCourse(t *testing.T) {
	svc := newTestChatService(&fakeSearcher{}, &fakeLLM{}, newFakeChatRepo(), &fakeCourses{exists: false})

	_, err := svc.CreateSession(uuid.New(), "About b-trees")
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCreateSession_AssignsID(t *testing.T) {
	svc := newTestChatService(&fakeSearcher{}, &fakeLLM{}, newFakeChatRepo(), &fakeCourses{exists: true})

	session, err := svc.CreateSession(uuid.New(), "About b-trees")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, session.ID)
}

func TestListSessions_ScopedToCourse(t *testing.T) {
	repo := newFakeChatRepo()
	courseID := uuid.New()
	require.NoError(t, repo.CreateSession(&models.ChatSession{CourseID: courseID, Title: "First"}))
	require.NoError(t, repo.CreateSession(&models.ChatSession{CourseID: courseID, Title: "Second"}))
	require.NoError(t, repo.CreateSession(&models.ChatSession{CourseID: uuid.New(), Title: "Other course"}))

	svc := newTestChatService(&fakeSearcher{}, &fakeLLM{}, repo, &fakeCourses{exists: true})

	sessions, err := svc.ListSessions(courseID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	for _, session := range sessions {
		assert.Equal(t, courseID, session.CourseID)
	}
}

func TestListSessions_UnknownCourse(t *testing.T) {
	svc := newTestChatService(&fakeSearcher{}, &fakeLLM{}, newFakeChatRepo(), &fakeCourses{exists: false})

	_, err := svc.ListSessions(uuid.New())
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestSendMessage_HappyPath(t *testing.T) {
	repo := newFakeChatRepo()
	courseID := uuid.New()
	session := &models.ChatSession{CourseID: courseID}
	require.NoError(t, repo.CreateSession(session))

	searcher := &fakeSearcher{result: hybridResultWithSources()}
	llmClient := &fakeLLM{response: "B-trees stay balanced.\nSOURCES_USED: C1"}
	svc := newTestChatService(searcher, llmClient, repo, &fakeCourses{exists: true})

	resp, err := svc.SendMessage(context.Background(), session.ID, "how do b-trees balance?", models.WebAuto)
	require.NoError(t, err)

	assert.Equal(t, "B-trees stay balanced.", resp.Message.Content)
	assert.Equal(t, "assistant", resp.Message.Role)
	assert.True(t, resp.UsedWebSearch)
	assert.Len(t, resp.Sources.Course, 1)

	// User message then assistant reply are both persisted
	messages, err := repo.GetMessages(session.ID, 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "assistant", messages[1].Role)

	// Retrieval is scoped to the session's course
	assert.Equal(t, courseID, searcher.lastIn.CourseID)
}

func TestSendMessage_UnknownSession(t *testing.T) {
	svc := newTestChatService(&fakeSearcher{}, &fakeLLM{}, newFakeChatRepo(), &fakeCourses{exists: true})

	_, err := svc.SendMessage(context.Background(), uuid.New(), "hello", models.WebAuto)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSendMessage_EmptyContent(t *testing.T) {
	svc := newTestChatService(&fakeSearcher{}, &fakeLLM{}, newFakeChatRepo(), &fakeCourses{exists: true})

	_, err := svc.SendMessage(context.Background(), uuid.New(), "   ", models.WebAuto)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestSendMessage_HistoryIncludedInPrompt(t *testing.T) {
	repo := newFakeChatRepo()
	session := &models.ChatSession{CourseID: uuid.New()}
	require.NoError(t, repo.CreateSession(session))

	require.NoError(t, repo.AddMessage(&models.ChatMessage{SessionID: session.ID, Role: "user", Content: "what is an index?"}))
	require.NoError(t, repo.AddMessage(&models.ChatMessage{SessionID: session.ID, Role: "assistant", Content: "An index speeds up lookups."}))

	searcher := &fakeSearcher{result: hybridResultWithSources()}
	llmClient := &fakeLLM{response: "Follow-up answer."}
	svc := newTestChatService(searcher, llmClient, repo, &fakeCourses{exists: true})

	_, err := svc.SendMessage(context.Background(), session.ID, "and what about b-trees?", models.WebAuto)
	require.NoError(t, err)

	// system, two history turns, then the context-bearing user message
	require.Len(t, llmClient.lastMessages, 4)
	assert.Equal(t, "system", llmClient.lastMessages[0].Role)
	assert.Equal(t, "what is an index?", llmClient.lastMessages[1].Content)
	assert.Equal(t, "An index speeds up lookups.", llmClient.lastMessages[2].Content)
	assert.Contains(t, llmClient.lastMessages[3].Content, "and what about b-trees?")
}

func TestSendMessage_RepeatedQuestionKeepsEarlierTurn(t *testing.T) {
	repo := newFakeChatRepo()
	session := &models.ChatSession{CourseID: uuid.New()}
	require.NoError(t, repo.CreateSession(session))

	require.NoError(t, repo.AddMessage(&models.ChatMessage{SessionID: session.ID, Role: "user", Content: "what is an index?"}))
	require.NoError(t, repo.AddMessage(&models.ChatMessage{SessionID: session.ID, Role: "assistant", Content: "An index speeds up lookups."}))

	searcher := &fakeSearcher{result: hybridResultWithSources()}
	llmClient := &fakeLLM{response: "Same answer, more detail."}
	svc := newTestChatService(searcher, llmClient, repo, &fakeCourses{exists: true})

	// Asking the same question again must not strip the earlier turn
	_, err := svc.SendMessage(context.Background(), session.ID, "what is an index?", models.WebAuto)
	require.NoError(t, err)

	require.Len(t, llmClient.lastMessages, 4)
	assert.Equal(t, "what is an index?", llmClient.lastMessages[1].Content)
	assert.Equal(t, "An index speeds up lookups.", llmClient.lastMessages[2].Content)
	assert.Contains(t, llmClient.lastMessages[3].Content, "what is an index?")
}

func TestSendMessage_PassesModeThrough(t *testing.T) {
	repo := newFakeChatRepo()
	session := &models.ChatSession{CourseID: uuid.New()}
	require.NoError(t, repo.CreateSession(session))

	searcher := &fakeSearcher{result: hybridResultWithSources()}
	svc := newTestChatService(searcher, &fakeLLM{response: "ok"}, repo, &fakeCourses{exists: true})

	_, err := svc.SendMessage(context.Background(), session.ID, "question", models.WebSkip)
	require.NoError(t, err)
	assert.Equal(t, models.WebSkip, searcher.lastIn.Mode)
}
