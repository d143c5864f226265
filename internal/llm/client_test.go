package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [{"message": {"content": "Generated notes."}}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "gpt-4o-mini", "text-embedding-3-small", testLogger())

	content, err := client.Complete(context.Background(), []ChatMessage{
		{Role: "system", Content: "You are a tutor."},
		{Role: "user", Content: "Explain b-trees."},
	})
	require.NoError(t, err)
	assert.Equal(t, "Generated notes.", content)
}

func TestClient_CompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "gpt-4o-mini", "text-embedding-3-small", testLogger())
	_, err := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
	assert.Error(t, err)
}

func TestClient_EmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)
		require.Len(t, req.Input, 2)

		// Out-of-order response, indexes must restore ordering
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": [
			{"index": 1, "embedding": [0.3, 0.4]},
			{"index": 0, "embedding": [0.1, 0.2]}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "gpt-4o-mini", "text-embedding-3-small", testLogger())

	vecs, err := client.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0.1, 0.2}, vecs[0])
	assert.Equal(t, []float32{0.3, 0.4}, vecs[1])
}

func TestClient_EmbedBatchCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": [{"index": 0, "embedding": [0.1]}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "gpt-4o-mini", "text-embedding-3-small", testLogger())
	_, err := client.EmbedBatch(context.Background(), []string{"one", "two"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestClient_EmbedBatchEmptyInput(t *testing.T) {
	client := NewClient("http://unused", "test-key", "gpt-4o-mini", "text-embedding-3-small", testLogger())
	vecs, err := client.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestClient_ErrorHandling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "invalid api key"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-key", "gpt-4o-mini", "text-embedding-3-small", testLogger())
	_, err := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
