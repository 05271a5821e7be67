package artifacts

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/meshchat/pkg/chat"
)

type countingStore struct {
	*MemoryStore
	lists   atomic.Int32
	fetches atomic.Int32
}

func (s *countingStore) List(ctx context.Context, sessionID string) ([]chat.ArtifactInfo, error) {
	s.lists.Add(1)
	return s.MemoryStore.List(ctx, sessionID)
}

func (s *countingStore) Fetch(ctx context.Context, sessionID, filename string, version int) ([]byte, error) {
	s.fetches.Add(1)
	return s.MemoryStore.Fetch(ctx, sessionID, filename, version)
}

func newCached(t *testing.T) (*CachedStore, *countingStore) {
	t.Helper()

	origin := &countingStore{MemoryStore: NewMemoryStore()}
	cached, err := NewCachedStore(origin, CacheConfig{})
	require.NoError(t, err)
	return cached, origin
}

func TestCachedStore_ContentIsCached(t *testing.T) {
	t.Parallel()

	s, origin := newCached(t)
	_, err := origin.Upload(t.Context(), "s1", "a.txt", "", []byte("hello"))
	require.NoError(t, err)

	for range 3 {
		content, err := s.Fetch(t.Context(), "s1", "a.txt", 1)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(content))
	}

	assert.Equal(t, int32(1), origin.fetches.Load())
	m := s.Metrics()
	assert.Equal(t, uint64(2), m.ContentHits)
	assert.Equal(t, uint64(1), m.ContentMisses)
}

func TestCachedStore_CallerCannotCorruptCache(t *testing.T) {
	t.Parallel()

	s, origin := newCached(t)
	_, err := origin.Upload(t.Context(), "s1", "a.txt", "", []byte("hello"))
	require.NoError(t, err)

	content, err := s.Fetch(t.Context(), "s1", "a.txt", 1)
	require.NoError(t, err)
	content[0] = 'J'

	content, err = s.Fetch(t.Context(), "s1", "a.txt", 1)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
}

func TestCachedStore_WritesInvalidateListing(t *testing.T) {
	t.Parallel()

	s, origin := newCached(t)

	list, err := s.List(t.Context(), "s1")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.Upload(t.Context(), "s1", "a.txt", "", []byte("x"))
	require.NoError(t, err)

	list, err = s.List(t.Context(), "s1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, int32(2), origin.lists.Load())

	require.NoError(t, s.Delete(t.Context(), "s1", "a.txt"))
	list, err = s.List(t.Context(), "s1")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.Fetch(t.Context(), "s1", "a.txt", 1)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, uint64(1), s.Metrics().OriginErrors)
}
