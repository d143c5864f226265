package models

// GORM models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Attribution is a jsonb column wrapper for SourceAttribution.
type Attribution SourceAttribution

func (a Attribution) Value() (driver.Value, error) {
	return json.Marshal(SourceAttribution(a))
}

func (a *Attribution) Scan(value interface{}) error {
	if value == nil {
		*a = Attribution{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, (*SourceAttribution)(a))
	case string:
		return json.Unmarshal([]byte(v), (*SourceAttribution)(a))
	default:
		return fmt.Errorf("cannot scan %T into Attribution", value)
	}
}

// Base model with common fields
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Course groups uploaded materials and scopes every search.
type Course struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string    `json:"name" gorm:"not null"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Associations
	Materials []Material `json:"materials,omitempty" gorm:"foreignKey:CourseID"`
}

// Material is one uploaded or imported document within a course.
type Material struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CourseID   uuid.UUID `json:"course_id" gorm:"type:uuid;not null;index"`
	Title      string    `json:"title" gorm:"not null"`
	FileType   string    `json:"file_type" gorm:"default:'text'"`
	Category   string    `json:"category" gorm:"default:'theory';check:category IN ('theory','lab')"`
	SourceURL  string    `json:"source_url"`
	ChunkCount int       `json:"chunk_count" gorm:"default:0"`
	Status     string    `json:"status" gorm:"default:'pending';check:status IN ('pending','processing','ready','failed')"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Associations
	Chunks []MaterialChunk `json:"chunks,omitempty" gorm:"foreignKey:MaterialID"`
}

// MaterialChunk is one embedded slice of a material. The embedding column
// backs the pgvector cosine similarity search.
type MaterialChunk struct {
	BaseModel
	MaterialID uuid.UUID       `json:"material_id" gorm:"type:uuid;not null;index"`
	ChunkIndex int             `json:"chunk_index" gorm:"not null"`
	Content    string          `json:"content" gorm:"not null"`
	Embedding  pgvector.Vector `json:"-" gorm:"type:vector(1536)"`
}

// GeneratedContent persists AI-generated notes alongside their attribution.
type GeneratedContent struct {
	ID            uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	CourseID      uuid.UUID   `json:"course_id" gorm:"type:uuid;not null;index"`
	Topic         string      `json:"topic" gorm:"not null"`
	GenType       string      `json:"gen_type" gorm:"default:'notes';check:gen_type IN ('notes','summary','study_guide')"`
	Content       string      `json:"content" gorm:"not null"`
	Sources       Attribution `json:"sources" gorm:"type:jsonb"`
	UsedWebSearch bool        `json:"used_web_search" gorm:"default:false"`
	TookMs        int64       `json:"took_ms"`
	CreatedAt     time.Time   `json:"created_at"`
}

// ChatSession is one conversation scoped to a course.
type ChatSession struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CourseID  uuid.UUID `json:"course_id" gorm:"type:uuid;not null;index"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Messages []ChatMessage `json:"messages,omitempty" gorm:"foreignKey:SessionID"`
}

// ChatMessage carries the attribution of its retrieval step when the role
// is assistant.
type ChatMessage struct {
	BaseModel
	SessionID     uuid.UUID   `json:"session_id" gorm:"type:uuid;not null;index"`
	Role          string      `json:"role" gorm:"not null;check:role IN ('user','assistant')"`
	Content       string      `json:"content" gorm:"not null"`
	Sources       Attribution `json:"sources" gorm:"type:jsonb"`
	UsedWebSearch bool        `json:"used_web_search" gorm:"default:false"`
}

// SearchQuery represents search analytics
type SearchQuery struct {
	BaseModel
	QueryText       string     `json:"query_text" gorm:"not null"`
	CourseID        *uuid.UUID `json:"course_id" gorm:"type:uuid"`
	UserSession     string     `json:"user_session"`
	ResultsCount    int        `json:"results_count" gorm:"default:0"`
	UsedWebSearch   bool       `json:"used_web_search" gorm:"default:false"`
	SearchTimestamp time.Time  `json:"search_timestamp" gorm:"default:NOW()"`
	ResponseTimeMs  int        `json:"response_time_ms"`
	UserAgent       string     `json:"user_agent"`
	IPAddress       string     `json:"ip_address" gorm:"type:inet"`
}

// Repository interfaces

type CourseRepository interface {
	Create(course *Course) error
	GetByID(id uuid.UUID) (*Course, error)
	GetAll() ([]Course, error)
	Exists(id uuid.UUID) (bool, error)
	Delete(id uuid.UUID) error
}

type MaterialRepository interface {
	Create(material *Material) error
	GetByID(id uuid.UUID) (*Material, error)
	GetByCourse(courseID uuid.UUID) ([]Material, error)
	Update(material *Material) error
	Delete(id uuid.UUID) error
}

type ChunkRepository interface {
	CreateBatch(chunks []MaterialChunk) error
	DeleteByMaterial(materialID uuid.UUID) error
	SimilaritySearch(ctx context.Context, courseID uuid.UUID, embedding []float32, limit int, category string) ([]SearchHit, error)
}

type GeneratedContentRepository interface {
	Create(content *GeneratedContent) error
	GetByID(id uuid.UUID) (*GeneratedContent, error)
	GetByCourse(courseID uuid.UUID, limit int) ([]GeneratedContent, error)
}

type ChatRepository interface {
	CreateSession(session *ChatSession) error
	GetSession(id uuid.UUID) (*ChatSession, error)
	GetSessionsByCourse(courseID uuid.UUID) ([]ChatSession, error)
	AddMessage(message *ChatMessage) error
	GetMessages(sessionID uuid.UUID, limit int) ([]ChatMessage, error)
}

type SearchQueryRepository interface {
	Create(query *SearchQuery) error
	GetRecent(limit int) ([]SearchQuery, error)
}
