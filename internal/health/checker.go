package health

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/studyforge/backend/internal/database"
)

// HealthChecker manages health checks for all services
type HealthChecker struct {
	dbManager     *database.Manager
	logger        *logrus.Logger
	openaiURL     string
	perplexityURL string
	startedAt     time.Time
}

func NewHealthChecker(dbManager *database.Manager, logger *logrus.Logger, openaiURL, perplexityURL string) *HealthChecker {
	return &HealthChecker{
		dbManager:     dbManager,
		logger:        logger,
		openaiURL:     openaiURL,
		perplexityURL: perplexityURL,
		startedAt:     time.Now(),
	}
}

// ServiceHealth represents the health status of a service
type ServiceHealth struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	ResponseTime int    `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
	LastChecked  string `json:"last_checked"`
}

// OverallHealth represents the overall system health
type OverallHealth struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
	Uptime   string          `json:"uptime"`
}

// CheckPostgreSQL checks PostgreSQL database health
func (h *HealthChecker) CheckPostgreSQL() ServiceHealth {
	start := time.Now()
	err := h.dbManager.PingDatabase()
	return h.serviceHealth("postgresql", start, err)
}

// CheckRedis checks Redis cache health
func (h *HealthChecker) CheckRedis() ServiceHealth {
	start := time.Now()
	err := h.dbManager.PingRedis()
	return h.serviceHealth("redis", start, err)
}

// CheckOpenAI checks OpenAI API reachability
func (h *HealthChecker) CheckOpenAI() ServiceHealth {
	return h.checkHTTP("openai", h.openaiURL+"/models")
}

// CheckPerplexity checks Perplexity API reachability
func (h *HealthChecker) CheckPerplexity() ServiceHealth {
	return h.checkHTTP("perplexity", h.perplexityURL)
}

// CheckAll runs every check and aggregates an overall status.
func (h *HealthChecker) CheckAll() OverallHealth {
	services := []ServiceHealth{
		h.CheckPostgreSQL(),
		h.CheckRedis(),
		h.CheckOpenAI(),
		h.CheckPerplexity(),
	}

	status := "healthy"
	for _, s := range services {
		if s.Status != "healthy" {
			// External APIs degrade, local stores make us unhealthy
			if s.Name == "postgresql" || s.Name == "redis" {
				status = "unhealthy"
				break
			}
			status = "degraded"
		}
	}

	return OverallHealth{
		Status:   status,
		Services: services,
		Uptime:   time.Since(h.startedAt).Round(time.Second).String(),
	}
}

func (h *HealthChecker) checkHTTP(name, url string) ServiceHealth {
	start := time.Now()

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err == nil {
		defer resp.Body.Close()
		// Auth errors still prove the endpoint is reachable
		if resp.StatusCode >= 500 {
			err = fmt.Errorf("HTTP %d", resp.StatusCode)
		}
	}

	return h.serviceHealth(name, start, err)
}

func (h *HealthChecker) serviceHealth(name string, start time.Time, err error) ServiceHealth {
	responseTime := int(time.Since(start).Milliseconds())

	status := "healthy"
	errorMsg := ""
	if err != nil {
		status = "unhealthy"
		errorMsg = err.Error()
		h.logger.WithError(err).WithField("service", name).Error("Health check failed")
	}

	return ServiceHealth{
		Name:         name,
		Status:       status,
		ResponseTime: responseTime,
		Error:        errorMsg,
		LastChecked:  time.Now().Format(time.RFC3339),
	}
}
