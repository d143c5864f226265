package llm

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Service wraps Client with retry on transient failures. Services depend
// on this facade rather than the raw client.
type Service struct {
	client *Client
	logger *logrus.Logger
}

func NewService(client *Client, logger *logrus.Logger) *Service {
	return &Service{
		client: client,
		logger: logger,
	}
}

func (s *Service) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	return s.client.CompleteWithRetry(ctx, messages)
}

func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return s.client.EmbedBatchWithRetry(ctx, texts)
}

func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}
