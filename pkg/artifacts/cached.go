package artifacts

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/agentmesh/meshchat/pkg/chat"
)

type CacheConfig struct {
	// ContentMaxEntries bounds cached artifact versions. Versions never
	// change once written, so content entries do not expire.
	ContentMaxEntries int `yaml:"content_max_entries,omitempty"`
	// ListTTL bounds how stale a cached listing or version list may be.
	ListTTL        time.Duration `yaml:"list_ttl,omitempty"`
	ListMaxEntries int           `yaml:"list_max_entries,omitempty"`
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		ContentMaxEntries: 256,
		ListTTL:           10 * time.Second,
		ListMaxEntries:    128,
	}
}

type MetricsSnapshot struct {
	ContentHits   uint64
	ContentMisses uint64
	ListHits      uint64
	ListMisses    uint64
	OriginErrors  uint64
}

type metrics struct {
	contentHits   atomic.Uint64
	contentMisses atomic.Uint64
	listHits      atomic.Uint64
	listMisses    atomic.Uint64
	originErrors  atomic.Uint64
}

// CachedStore is a read-through cache in front of another artifact store.
// Writes go to the origin and invalidate what they touch.
type CachedStore struct {
	origin chat.ArtifactStore

	content  *lru.Cache[string, []byte]
	lists    *expirable.LRU[string, []chat.ArtifactInfo]
	versions *expirable.LRU[string, []int]
	metrics  metrics
}

func NewCachedStore(origin chat.ArtifactStore, cfg CacheConfig) (*CachedStore, error) {
	def := DefaultCacheConfig()
	if cfg.ContentMaxEntries <= 0 {
		cfg.ContentMaxEntries = def.ContentMaxEntries
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = def.ListTTL
	}
	if cfg.ListMaxEntries <= 0 {
		cfg.ListMaxEntries = def.ListMaxEntries
	}

	content, err := lru.New[string, []byte](cfg.ContentMaxEntries)
	if err != nil {
		return nil, fmt.Errorf("creating content cache: %w", err)
	}
	return &CachedStore{
		origin:   origin,
		content:  content,
		lists:    expirable.NewLRU[string, []chat.ArtifactInfo](cfg.ListMaxEntries, nil, cfg.ListTTL),
		versions: expirable.NewLRU[string, []int](cfg.ListMaxEntries, nil, cfg.ListTTL),
	}, nil
}

func (s *CachedStore) List(ctx context.Context, sessionID string) ([]chat.ArtifactInfo, error) {
	if list, ok := s.lists.Get(sessionID); ok {
		s.metrics.listHits.Add(1)
		return slices.Clone(list), nil
	}
	s.metrics.listMisses.Add(1)

	list, err := s.origin.List(ctx, sessionID)
	if err != nil {
		s.metrics.originErrors.Add(1)
		return nil, err
	}
	s.lists.Add(sessionID, slices.Clone(list))
	return list, nil
}

func (s *CachedStore) Versions(ctx context.Context, sessionID, filename string) ([]int, error) {
	key := fileKey(sessionID, filename)
	if versions, ok := s.versions.Get(key); ok {
		s.metrics.listHits.Add(1)
		return slices.Clone(versions), nil
	}
	s.metrics.listMisses.Add(1)

	versions, err := s.origin.Versions(ctx, sessionID, filename)
	if err != nil {
		s.metrics.originErrors.Add(1)
		return nil, err
	}
	s.versions.Add(key, slices.Clone(versions))
	return versions, nil
}

func (s *CachedStore) Fetch(ctx context.Context, sessionID, filename string, version int) ([]byte, error) {
	key := fmt.Sprintf("%s@%d", fileKey(sessionID, filename), version)
	if raw, ok := s.content.Get(key); ok {
		s.metrics.contentHits.Add(1)
		return slices.Clone(raw), nil
	}
	s.metrics.contentMisses.Add(1)

	raw, err := s.origin.Fetch(ctx, sessionID, filename, version)
	if err != nil {
		s.metrics.originErrors.Add(1)
		return nil, err
	}
	s.content.Add(key, slices.Clone(raw))
	return raw, nil
}

func (s *CachedStore) Upload(ctx context.Context, sessionID, filename, mimeType string, content []byte) (chat.ArtifactInfo, error) {
	info, err := s.origin.Upload(ctx, sessionID, filename, mimeType, content)
	if err != nil {
		s.metrics.originErrors.Add(1)
		return chat.ArtifactInfo{}, err
	}
	s.lists.Remove(sessionID)
	s.versions.Remove(fileKey(sessionID, filename))
	s.content.Add(fmt.Sprintf("%s@%d", fileKey(sessionID, filename), info.Version), slices.Clone(content))
	return info, nil
}

func (s *CachedStore) Delete(ctx context.Context, sessionID, filename string) error {
	defer s.invalidate(sessionID, filename)

	if err := s.origin.Delete(ctx, sessionID, filename); err != nil {
		s.metrics.originErrors.Add(1)
		return err
	}
	return nil
}

func (s *CachedStore) BatchDelete(ctx context.Context, sessionID string, filenames []string) ([]string, error) {
	defer func() {
		for _, name := range filenames {
			s.invalidate(sessionID, name)
		}
	}()

	deleted, err := s.origin.BatchDelete(ctx, sessionID, filenames)
	if err != nil {
		s.metrics.originErrors.Add(1)
	}
	return deleted, err
}

func (s *CachedStore) invalidate(sessionID, filename string) {
	s.lists.Remove(sessionID)
	s.versions.Remove(fileKey(sessionID, filename))

	prefix := fileKey(sessionID, filename) + "@"
	for _, key := range s.content.Keys() {
		if strings.HasPrefix(key, prefix) {
			s.content.Remove(key)
		}
	}
}

func (s *CachedStore) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		ContentHits:   s.metrics.contentHits.Load(),
		ContentMisses: s.metrics.contentMisses.Load(),
		ListHits:      s.metrics.listHits.Load(),
		ListMisses:    s.metrics.listMisses.Load(),
		OriginErrors:  s.metrics.originErrors.Load(),
	}
}

func fileKey(sessionID, filename string) string {
	return strings.TrimSpace(sessionID) + "/" + strings.TrimSpace(filename)
}
