package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/studyforge/backend/internal/models"
)

// CourseRepositoryImpl implements CourseRepository
type CourseRepositoryImpl struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) models.CourseRepository {
	return &CourseRepositoryImpl{db: db}
}

func (r *CourseRepositoryImpl) Create(course *models.Course) error {
	if course.ID == uuid.Nil {
		course.ID = uuid.New()
	}
	return r.db.Create(course).Error
}

func (r *CourseRepositoryImpl) GetByID(id uuid.UUID) (*models.Course, error) {
	var course models.Course
	err := r.db.First(&course, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepositoryImpl) GetAll() ([]models.Course, error) {
	var courses []models.Course
	err := r.db.Order("created_at DESC").Find(&courses).Error
	return courses, err
}

func (r *CourseRepositoryImpl) Exists(id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&models.Course{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *CourseRepositoryImpl) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.Course{}, "id = ?", id).Error
}

// MaterialRepositoryImpl implements MaterialRepository
type MaterialRepositoryImpl struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) models.MaterialRepository {
	return &MaterialRepositoryImpl{db: db}
}

func (r *MaterialRepositoryImpl) Create(material *models.Material) error {
	if material.ID == uuid.Nil {
		material.ID = uuid.New()
	}
	return r.db.Create(material).Error
}

func (r *MaterialRepositoryImpl) GetByID(id uuid.UUID) (*models.Material, error) {
	var material models.Material
	err := r.db.First(&material, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *MaterialRepositoryImpl) GetByCourse(courseID uuid.UUID) ([]models.Material, error) {
	var materials []models.Material
	err := r.db.Where("course_id = ?", courseID).
		Order("created_at DESC").
		Find(&materials).Error
	return materials, err
}

func (r *MaterialRepositoryImpl) Update(material *models.Material) error {
	return r.db.Save(material).Error
}

func (r *MaterialRepositoryImpl) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.Material{}, "id = ?", id).Error
}

// ChunkRepositoryImpl implements ChunkRepository on top of pgvector
type ChunkRepositoryImpl struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) models.ChunkRepository {
	return &ChunkRepositoryImpl{db: db}
}

func (r *ChunkRepositoryImpl) CreateBatch(chunks []models.MaterialChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.db.CreateInBatches(chunks, 100).Error
}

func (r *ChunkRepositoryImpl) DeleteByMaterial(materialID uuid.UUID) error {
	return r.db.Delete(&models.MaterialChunk{}, "material_id = ?", materialID).Error
}

type chunkSearchRow struct {
	ID             uint
	Content        string
	ChunkIndex     int
	MaterialID     uuid.UUID
	MaterialTitle  string
	FileType       string
	Category       string
	RelevanceScore float64
}

// SimilaritySearch runs a cosine similarity search over chunk embeddings,
// scoped to one course. Results come back ordered by descending relevance.
func (r *ChunkRepositoryImpl) SimilaritySearch(ctx context.Context, courseID uuid.UUID, embedding []float32, limit int, category string) ([]models.SearchHit, error) {
	vec := pgvector.NewVector(embedding)

	var rows []chunkSearchRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT mc.id,
		       mc.content,
		       mc.chunk_index,
		       mc.material_id,
		       m.title AS material_title,
		       m.file_type,
		       m.category,
		       1 - (mc.embedding <=> ?) AS relevance_score
		FROM material_chunks mc
		JOIN materials m ON m.id = mc.material_id
		WHERE m.course_id = ?
		  AND (? = '' OR m.category = ?)
		ORDER BY mc.embedding <=> ?
		LIMIT ?
	`, vec, courseID, category, category, vec, limit).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	hits := make([]models.SearchHit, 0, len(rows))
	for _, row := range rows {
		score := row.RelevanceScore
		// Cosine distance can exceed 1 for opposed vectors
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}

		hits = append(hits, models.SearchHit{
			ID:             fmt.Sprintf("%d", row.ID),
			Content:        row.Content,
			MaterialID:     row.MaterialID.String(),
			MaterialTitle:  row.MaterialTitle,
			FileType:       row.FileType,
			Category:       row.Category,
			ChunkIndex:     row.ChunkIndex,
			RelevanceScore: score,
		})
	}

	return hits, nil
}

// GeneratedContentRepositoryImpl implements GeneratedContentRepository
type GeneratedContentRepositoryImpl struct {
	db *gorm.DB
}

func NewGeneratedContentRepository(db *gorm.DB) models.GeneratedContentRepository {
	return &GeneratedContentRepositoryImpl{db: db}
}

func (r *GeneratedContentRepositoryImpl) Create(content *models.GeneratedContent) error {
	if content.ID == uuid.Nil {
		content.ID = uuid.New()
	}
	return r.db.Create(content).Error
}

func (r *GeneratedContentRepositoryImpl) GetByID(id uuid.UUID) (*models.GeneratedContent, error) {
	var content models.GeneratedContent
	err := r.db.First(&content, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &content, nil
}

func (r *GeneratedContentRepositoryImpl) GetByCourse(courseID uuid.UUID, limit int) ([]models.GeneratedContent, error) {
	var contents []models.GeneratedContent
	err := r.db.Where("course_id = ?", courseID).
		Order("created_at DESC").
		Limit(limit).
		Find(&contents).Error
	return contents, err
}

// ChatRepositoryImpl implements ChatRepository
type ChatRepositoryImpl struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) models.ChatRepository {
	return &ChatRepositoryImpl{db: db}
}

func (r *ChatRepositoryImpl) CreateSession(session *models.ChatSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	return r.db.Create(session).Error
}

func (r *ChatRepositoryImpl) GetSession(id uuid.UUID) (*models.ChatSession, error) {
	var session models.ChatSession
	err := r.db.First(&session, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *ChatRepositoryImpl) GetSessionsByCourse(courseID uuid.UUID) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	err := r.db.Where("course_id = ?", courseID).
		Order("updated_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *ChatRepositoryImpl) AddMessage(message *models.ChatMessage) error {
	return r.db.Create(message).Error
}

// GetMessages returns the last `limit` messages in chronological order.
func (r *ChatRepositoryImpl) GetMessages(sessionID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.db.Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Reverse back to oldest-first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// SearchQueryRepositoryImpl implements SearchQueryRepository
type SearchQueryRepositoryImpl struct {
	db *gorm.DB
}

func NewSearchQueryRepository(db *gorm.DB) models.SearchQueryRepository {
	return &SearchQueryRepositoryImpl{db: db}
}

func (r *SearchQueryRepositoryImpl) Create(query *models.SearchQuery) error {
	return r.db.Create(query).Error
}

func (r *SearchQueryRepositoryImpl) GetRecent(limit int) ([]models.SearchQuery, error) {
	var queries []models.SearchQuery
	err := r.db.Order("search_timestamp DESC").
		Limit(limit).
		Find(&queries).Error
	return queries, err
}

// RepositoryManager bundles all repositories
type RepositoryManager struct {
	Course           models.CourseRepository
	Material         models.MaterialRepository
	Chunk            models.ChunkRepository
	GeneratedContent models.GeneratedContentRepository
	Chat             models.ChatRepository
	SearchQuery      models.SearchQueryRepository
}

func NewRepositoryManager(db *gorm.DB) *RepositoryManager {
	return &RepositoryManager{
		Course:           NewCourseRepository(db),
		Material:         NewMaterialRepository(db),
		Chunk:            NewChunkRepository(db),
		GeneratedContent: NewGeneratedContentRepository(db),
		Chat:             NewChatRepository(db),
		SearchQuery:      NewSearchQueryRepository(db),
	}
}
