package artifacts

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/agentmesh/meshchat/pkg/chat"
)

type memoryEntry struct {
	info     chat.ArtifactInfo
	versions [][]byte
}

// MemoryStore keeps artifacts in process memory. Versions are numbered from
// 1 and never rewritten.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*memoryEntry
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]map[string]*memoryEntry),
		now:      time.Now,
	}
}

// NewMemoryStoreWithClock is NewMemoryStore with a fixed time source.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	s := NewMemoryStore()
	s.now = now
	return s
}

func (s *MemoryStore) List(_ context.Context, sessionID string) ([]chat.ArtifactInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := s.sessions[sessionID]
	out := make([]chat.ArtifactInfo, 0, len(files))
	for _, name := range slices.Sorted(maps.Keys(files)) {
		out = append(out, files[name].info)
	}
	return out, nil
}

func (s *MemoryStore) Versions(_ context.Context, sessionID, filename string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID][filename]
	if !ok {
		return nil, ErrNotFound
	}
	versions := make([]int, len(e.versions))
	for i := range e.versions {
		versions[i] = i + 1
	}
	return versions, nil
}

func (s *MemoryStore) Fetch(_ context.Context, sessionID, filename string, version int) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID][filename]
	if !ok || version < 1 || version > len(e.versions) {
		return nil, ErrNotFound
	}
	return slices.Clone(e.versions[version-1]), nil
}

func (s *MemoryStore) Upload(_ context.Context, sessionID, filename, mimeType string, content []byte) (chat.ArtifactInfo, error) {
	if err := validateName(sessionID, filename); err != nil {
		return chat.ArtifactInfo{}, err
	}
	if mimeType == "" {
		mimeType = chat.DetectMimeType(filename)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files, ok := s.sessions[sessionID]
	if !ok {
		files = make(map[string]*memoryEntry)
		s.sessions[sessionID] = files
	}
	e, ok := files[filename]
	if !ok {
		e = &memoryEntry{}
		files[filename] = e
	}
	e.versions = append(e.versions, slices.Clone(content))
	e.info = chat.ArtifactInfo{
		Filename:     filename,
		MimeType:     mimeType,
		Size:         int64(len(content)),
		LastModified: s.now(),
		Version:      len(e.versions),
	}
	return e.info, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID][filename]; !ok {
		return ErrNotFound
	}
	delete(s.sessions[sessionID], filename)
	return nil
}

func (s *MemoryStore) BatchDelete(ctx context.Context, sessionID string, filenames []string) ([]string, error) {
	return DeleteEach(ctx, filenames, 1, func(ctx context.Context, filename string) error {
		return s.Delete(ctx, sessionID, filename)
	})
}
