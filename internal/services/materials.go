package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/studyforge/backend/internal/models"
)

var (
	// ErrEmptyMaterial rejects materials with no usable text.
	ErrEmptyMaterial = errors.New("material content is empty")

	// ErrMaterialNotFound rejects operations on unknown materials.
	ErrMaterialNotFound = errors.New("material not found")
)

// BatchEmbedder embeds a batch of chunk texts, preserving order.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// MaterialService runs the ingestion pipeline: chunk, embed, store.
type MaterialService struct {
	courses   models.CourseRepository
	materials models.MaterialRepository
	chunks    models.ChunkRepository
	embedder  BatchEmbedder
	logger    *logrus.Logger
}

func NewMaterialService(
	courses models.CourseRepository,
	materials models.MaterialRepository,
	chunks models.ChunkRepository,
	embedder BatchEmbedder,
	logger *logrus.Logger,
) *MaterialService {
	return &MaterialService{
		courses:   courses,
		materials: materials,
		chunks:    chunks,
		embedder:  embedder,
		logger:    logger,
	}
}

type IngestInput struct {
	CourseID  uuid.UUID
	Title     string
	Content   string
	FileType  string
	Category  string
	SourceURL string
}

// Ingest creates a material and indexes its chunks for vector search.
func (m *MaterialService) Ingest(ctx context.Context, in IngestInput) (*models.Material, error) {
	content := sanitizeText(in.Content)
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMaterial
	}

	exists, err := m.courses.Exists(in.CourseID)
	if err != nil {
		return nil, fmt.Errorf("course lookup failed: %w", err)
	}
	if !exists {
		return nil, ErrCourseNotFound
	}

	fileType := in.FileType
	if fileType == "" {
		fileType = "text"
	}
	category := in.Category
	if category == "" {
		category = "theory"
	}

	material := &models.Material{
		CourseID:  in.CourseID,
		Title:     in.Title,
		FileType:  fileType,
		Category:  category,
		SourceURL: in.SourceURL,
		Status:    "processing",
	}
	if err := m.materials.Create(material); err != nil {
		return nil, fmt.Errorf("failed to create material: %w", err)
	}

	if err := m.indexChunks(ctx, material, content); err != nil {
		material.Status = "failed"
		if uerr := m.materials.Update(material); uerr != nil {
			m.logger.WithError(uerr).Error("Failed to mark material as failed")
		}
		return nil, err
	}

	material.Status = "ready"
	if err := m.materials.Update(material); err != nil {
		return nil, fmt.Errorf("failed to finalize material: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"material_id": material.ID,
		"title":       material.Title,
		"chunks":      material.ChunkCount,
	}).Info("Material ingested")

	return material, nil
}

func (m *MaterialService) indexChunks(ctx context.Context, material *models.Material, content string) error {
	texts := ChunkText(content)
	if len(texts) == 0 {
		return ErrEmptyMaterial
	}

	embeddings, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("chunk embedding failed: %w", err)
	}

	chunks := make([]models.MaterialChunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, models.MaterialChunk{
			MaterialID: material.ID,
			ChunkIndex: i,
			Content:    text,
			Embedding:  pgvector.NewVector(embeddings[i]),
		})
	}

	if err := m.chunks.CreateBatch(chunks); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}

	material.ChunkCount = len(chunks)
	return nil
}

// Delete removes a material and its indexed chunks.
func (m *MaterialService) Delete(materialID uuid.UUID) error {
	if _, err := m.materials.GetByID(materialID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMaterialNotFound
		}
		return fmt.Errorf("material lookup failed: %w", err)
	}

	if err := m.chunks.DeleteByMaterial(materialID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return m.materials.Delete(materialID)
}

// sanitizeText strips null bytes and control characters postgres cannot
// store in text columns.
func sanitizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' || r >= ' ' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
