package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/studyforge/backend/internal/models"
)

// Provider fetches raw web results for a query.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]models.WebHit, error)
}

// defaultRelevance is used when the provider omits a score.
const defaultRelevance = 0.5

// PerplexityClient implements Provider against the Perplexity API. The
// sonar model answers with citations which map onto WebHit entries.
type PerplexityClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewPerplexityClient(baseURL, apiKey string, logger *logrus.Logger) *PerplexityClient {
	return &PerplexityClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type perplexityRequest struct {
	Model           string              `json:"model"`
	Messages        []perplexityMessage `json:"messages"`
	MaxTokens       int                 `json:"max_tokens"`
	ReturnCitations bool                `json:"return_citations"`
	RecencyFilter   string              `json:"search_recency_filter"`
}

type perplexityMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type perplexityResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations []json.RawMessage `json:"citations"`
}

type perplexityCitation struct {
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Snippet string   `json:"snippet"`
	Score   *float64 `json:"score"`
	Date    string   `json:"date"`
}

func (c *PerplexityClient) Search(ctx context.Context, query string, limit int) ([]models.WebHit, error) {
	req := perplexityRequest{
		Model: "sonar",
		Messages: []perplexityMessage{
			{
				Role:    "system",
				Content: "You are a helpful search assistant. Provide concise, factual information with sources. Include relevant URLs.",
			},
			{
				Role:    "user",
				Content: query,
			},
		},
		MaxTokens:       1024,
		ReturnCitations: true,
		RecencyFilter:   "week",
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", ErrUnavailable, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrUnavailable, err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WithFields(logrus.Fields{
			"status_code":   resp.StatusCode,
			"response_body": string(responseBody),
		}).Debug("Perplexity API error response")
		return nil, fmt.Errorf("%w: provider returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed perplexityResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal response: %v", ErrUnavailable, err)
	}

	return c.mapResults(parsed, limit), nil
}

// mapResults turns citations into WebHit entries. Citations come back
// either as bare URL strings or as objects with metadata.
func (c *PerplexityClient) mapResults(parsed perplexityResponse, limit int) []models.WebHit {
	var hits []models.WebHit

	for i, raw := range parsed.Citations {
		if limit > 0 && len(hits) >= limit {
			break
		}

		var asString string
		if err := json.Unmarshal(raw, &asString); err == nil {
			hits = append(hits, models.WebHit{
				Title:          fmt.Sprintf("Source %d", i+1),
				URL:            asString,
				SourceDomain:   extractDomain(asString),
				RelevanceScore: defaultRelevance,
			})
			continue
		}

		var citation perplexityCitation
		if err := json.Unmarshal(raw, &citation); err != nil {
			continue
		}

		title := citation.Title
		if title == "" {
			title = fmt.Sprintf("Source %d", i+1)
		}
		score := defaultRelevance
		if citation.Score != nil {
			score = *citation.Score
		}

		hits = append(hits, models.WebHit{
			Title:          title,
			URL:            citation.URL,
			Snippet:        citation.Snippet,
			SourceDomain:   extractDomain(citation.URL),
			PublishedDate:  citation.Date,
			RelevanceScore: score,
		})
	}

	// No citations at all: fall back to a single hit from the answer body
	if len(hits) == 0 && len(parsed.Choices) > 0 {
		content := parsed.Choices[0].Message.Content
		if content != "" {
			if len(content) > 500 {
				content = content[:500]
			}
			hits = append(hits, models.WebHit{
				Title:          "Search Result",
				Snippet:        content,
				SourceDomain:   "perplexity.ai",
				RelevanceScore: defaultRelevance,
			})
		}
	}

	return hits
}

func extractDomain(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}
