package llm

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
	}
}

// CompleteWithRetry retries transient completion failures with backoff.
func (c *Client) CompleteWithRetry(ctx context.Context, messages []ChatMessage) (string, error) {
	var result string
	err := c.retryOperation(ctx, func() error {
		var err error
		result, err = c.Complete(ctx, messages)
		return err
	})
	return result, err
}

// EmbedBatchWithRetry retries transient embedding failures with backoff.
func (c *Client) EmbedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var result [][]float32
	err := c.retryOperation(ctx, func() error {
		var err error
		result, err = c.EmbedBatch(ctx, texts)
		return err
	})
	return result, err
}

func (c *Client) retryOperation(ctx context.Context, operation func() error) error {
	config := DefaultRetryConfig()

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := operation()
		if err == nil {
			return nil
		}

		if attempt == config.MaxRetries {
			return fmt.Errorf("operation failed after %d retries: %w", config.MaxRetries, err)
		}

		delay := time.Duration(float64(config.BaseDelay) * math.Pow(1.5, float64(attempt)))
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}

		c.logger.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"delay":   delay,
			"error":   err.Error(),
		}).Warn("Retrying OpenAI operation")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil
}
