package websearch

import "errors"

var (
	// ErrInvalidQuery rejects empty or over-length queries before any
	// external call.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrRateLimited means the provider call budget for the current
	// window is exhausted.
	ErrRateLimited = errors.New("web search rate limit exceeded")

	// ErrUnavailable covers provider and transport failures.
	ErrUnavailable = errors.New("web search unavailable")
)
