package websearch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/studyforge/backend/internal/models"
	"github.com/studyforge/backend/pkg/utils"
)

// MaxQueryLength bounds accepted query text.
const MaxQueryLength = 500

// Gateway fronts the web search provider with a cache and a sliding-window
// rate limit. Cache hits never spend rate-limit budget and never reach the
// provider.
type Gateway struct {
	provider Provider
	store    CacheStore
	limiter  *Limiter
	ttl      time.Duration
	logger   *logrus.Logger
	now      func() time.Time
}

func NewGateway(provider Provider, store CacheStore, limiter *Limiter, ttl time.Duration, logger *logrus.Logger) *Gateway {
	return &Gateway{
		provider: provider,
		store:    store,
		limiter:  limiter,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Normalize produces the canonical form of a query used for cache keying.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Search returns web hits for the query together with a cached flag.
// Returns ErrInvalidQuery, ErrRateLimited, or ErrUnavailable; callers on
// the hybrid path treat the latter two as "no web results".
func (g *Gateway) Search(ctx context.Context, query string, limit int) ([]models.WebHit, bool, error) {
	normalized := Normalize(query)
	if normalized == "" {
		return nil, false, fmt.Errorf("%w: empty after trimming", ErrInvalidQuery)
	}
	if utf8.RuneCountInString(normalized) > MaxQueryLength {
		return nil, false, fmt.Errorf("%w: longer than %d characters", ErrInvalidQuery, MaxQueryLength)
	}

	key := utils.MD5Hash(normalized)
	now := g.now()

	entry, ok, err := g.store.Get(ctx, key)
	if err != nil {
		// A broken cache degrades to a miss, not a failed search
		g.logger.WithError(err).Warn("Web search cache lookup failed")
	} else if ok && now.Before(entry.ExpiresAt) {
		uses, err := g.store.Bump(ctx, key)
		if err != nil {
			g.logger.WithError(err).Warn("Failed to record cache usage")
		}

		g.logger.WithFields(logrus.Fields{
			"query":      normalized,
			"used_count": uses,
		}).Debug("Web search served from cache")
		return truncateHits(entry.Results, limit), true, nil
	}

	if !g.limiter.Reserve() {
		return nil, false, ErrRateLimited
	}

	hits, err := g.provider.Search(ctx, strings.TrimSpace(query), limit)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, false, err
	}

	newEntry := &CacheEntry{
		Results:    hits,
		CreatedAt:  now,
		ExpiresAt:  now.Add(g.ttl),
		UsedCount:  1,
		LastUsedAt: now,
	}
	if err := g.store.Put(ctx, key, newEntry); err != nil {
		// Cache failure must not break the search
		g.logger.WithError(err).Warn("Failed to cache web search results")
	}

	g.logger.WithFields(logrus.Fields{
		"query":   normalized,
		"results": len(hits),
	}).Debug("Web search fetched from provider")

	return truncateHits(hits, limit), false, nil
}

func truncateHits(hits []models.WebHit, limit int) []models.WebHit {
	if limit > 0 && len(hits) > limit {
		return hits[:limit]
	}
	return hits
}
