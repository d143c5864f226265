package websearch

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyforge/backend/internal/models"
	"github.com/studyforge/backend/pkg/utils"
)

type fakeProvider struct {
	hits  []models.WebHit
	err   error
	calls int
}

func (f *fakeProvider) Search(ctx context.Context, query string, limit int) ([]models.WebHit, error) {
	f.calls++
	return f.hits, f.err
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestGateway(provider Provider, limit int) (*Gateway, *MemoryStore) {
	store := NewMemoryStore()
	gateway := NewGateway(provider, store, NewLimiter(limit), 7*24*time.Hour, quietLogger())
	return gateway, store
}

func TestGateway_CacheHitSkipsProvider(t *testing.T) {
	provider := &fakeProvider{hits: []models.WebHit{{Title: "hit", URL: "https://example.com"}}}
	gateway, _ := newTestGateway(provider, 5)

	first, cached, err := gateway.Search(context.Background(), "what is raft", 5)
	require.NoError(t, err)
	assert.False(t, cached)

	second, cached, err := gateway.Search(context.Background(), "what is raft", 5)
	require.NoError(t, err)
	assert.True(t, cached)

	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, first, second)
}

func TestGateway_NormalizationSharesCacheEntries(t *testing.T) {
	provider := &fakeProvider{hits: []models.WebHit{{Title: "hit"}}}
	gateway, store := newTestGateway(provider, 5)

	_, _, err := gateway.Search(context.Background(), "  Raft Consensus ", 5)
	require.NoError(t, err)

	_, cached, err := gateway.Search(context.Background(), "raft consensus", 5)
	require.NoError(t, err)

	assert.True(t, cached)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, 1, store.Len())
}

func TestGateway_CacheHitSpendsNoBudget(t *testing.T) {
	provider := &fakeProvider{hits: []models.WebHit{{Title: "hit"}}}
	gateway, _ := newTestGateway(provider, 1)

	_, _, err := gateway.Search(context.Background(), "only query", 5)
	require.NoError(t, err)

	// Budget is exhausted but repeats are still served
	for i := 0; i < 3; i++ {
		_, cached, err := gateway.Search(context.Background(), "only query", 5)
		require.NoError(t, err)
		assert.True(t, cached)
	}
}

func TestGateway_RateLimitExceeded(t *testing.T) {
	provider := &fakeProvider{hits: []models.WebHit{{Title: "hit"}}}
	gateway, _ := newTestGateway(provider, 2)

	_, _, err := gateway.Search(context.Background(), "query one", 5)
	require.NoError(t, err)
	_, _, err = gateway.Search(context.Background(), "query two", 5)
	require.NoError(t, err)

	_, _, err = gateway.Search(context.Background(), "query three", 5)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 2, provider.calls)
}

func TestGateway_InvalidQueries(t *testing.T) {
	provider := &fakeProvider{}
	gateway, _ := newTestGateway(provider, 5)

	_, _, err := gateway.Search(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, _, err = gateway.Search(context.Background(), strings.Repeat("a", MaxQueryLength+1), 5)
	assert.ErrorIs(t, err, ErrInvalidQuery)

	assert.Equal(t, 0, provider.calls)
}

func TestGateway_QueryAtMaxLengthAccepted(t *testing.T) {
	provider := &fakeProvider{hits: []models.WebHit{{Title: "hit"}}}
	gateway, _ := newTestGateway(provider, 5)

	_, _, err := gateway.Search(context.Background(), strings.Repeat("a", MaxQueryLength), 5)
	assert.NoError(t, err)
}

func TestGateway_ProviderFailureWrapped(t *testing.T) {
	provider := &fakeProvider{err: ErrUnavailable}
	gateway, store := newTestGateway(provider, 5)

	_, _, err := gateway.Search(context.Background(), "query", 5)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 0, store.Len())
}

func TestGateway_ExpiredEntryRefetched(t *testing.T) {
	provider := &fakeProvider{hits: []models.WebHit{{Title: "hit"}}}
	store := NewMemoryStore()
	gateway := NewGateway(provider, store, NewLimiter(5), time.Hour, quietLogger())

	current := time.Now()
	gateway.now = func() time.Time { return current }

	_, _, err := gateway.Search(context.Background(), "query", 5)
	require.NoError(t, err)

	// Within the TTL the entry is still served
	current = current.Add(30 * time.Minute)
	_, cached, err := gateway.Search(context.Background(), "query", 5)
	require.NoError(t, err)
	assert.True(t, cached)

	// Past the TTL it is treated as a miss
	current = current.Add(31 * time.Minute)
	_, cached, err = gateway.Search(context.Background(), "query", 5)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, provider.calls)
}

func TestGateway_TruncatesToLimit(t *testing.T) {
	provider := &fakeProvider{hits: []models.WebHit{
		{Title: "one"}, {Title: "two"}, {Title: "three"}, {Title: "four"},
	}}
	gateway, _ := newTestGateway(provider, 5)

	hits, _, err := gateway.Search(context.Background(), "query", 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, "one", hits[0].Title)
}

func TestGateway_CacheTracksUsage(t *testing.T) {
	provider := &fakeProvider{hits: []models.WebHit{{Title: "hit"}}}
	gateway, store := newTestGateway(provider, 5)

	_, _, err := gateway.Search(context.Background(), "query", 5)
	require.NoError(t, err)
	_, _, err = gateway.Search(context.Background(), "query", 5)
	require.NoError(t, err)
	_, _, err = gateway.Search(context.Background(), "query", 5)
	require.NoError(t, err)

	entry, ok, err := store.Get(context.Background(), keyFor("query"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, entry.UsedCount)
}

func keyFor(query string) string {
	return utils.MD5Hash(Normalize(query))
}
