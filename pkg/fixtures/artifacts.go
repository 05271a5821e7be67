package fixtures

import (
	"cmp"
	"context"
	"errors"
	"strings"

	"github.com/agentmesh/meshchat/pkg/artifacts"
	"github.com/agentmesh/meshchat/pkg/chat"
)

// ArtifactStore returns a memory store holding the fixture artifacts in
// SessionID. plan.md has two versions.
func ArtifactStore() *artifacts.MemoryStore {
	s := artifacts.NewMemoryStoreWithClock(Clock)
	ctx := context.Background()
	_, _ = s.Upload(ctx, SessionID, "plan.md", "text/plain", []byte("# Plan\n\n- draft\n"))
	_, _ = s.Upload(ctx, SessionID, "plan.md", "text/plain", []byte("# Plan\n\n- review the repository layout\n- propose a fix\n"))
	_, _ = s.Upload(ctx, SessionID, "diagram.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
	return s
}

// FailingArtifacts wraps a store and fails the operations whose error field
// is set.
type FailingArtifacts struct {
	chat.ArtifactStore

	ListErr   error
	FetchErr  error
	UploadErr error
	DeleteErr error
	// FailDeleting makes BatchDelete fail for filenames with this prefix.
	FailDeleting string
}

func (f *FailingArtifacts) List(ctx context.Context, sessionID string) ([]chat.ArtifactInfo, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.ArtifactStore.List(ctx, sessionID)
}

func (f *FailingArtifacts) Fetch(ctx context.Context, sessionID, filename string, version int) ([]byte, error) {
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	return f.ArtifactStore.Fetch(ctx, sessionID, filename, version)
}

func (f *FailingArtifacts) Upload(ctx context.Context, sessionID, filename, mimeType string, content []byte) (chat.ArtifactInfo, error) {
	if f.UploadErr != nil {
		return chat.ArtifactInfo{}, f.UploadErr
	}
	return f.ArtifactStore.Upload(ctx, sessionID, filename, mimeType, content)
}

// ErrDenied is the deletion error used when only FailDeleting is set.
var ErrDenied = errors.New("permission denied")

func (f *FailingArtifacts) deleteErr(filename string) error {
	if f.FailDeleting == "" {
		return f.DeleteErr
	}
	if strings.HasPrefix(filename, f.FailDeleting) {
		return cmp.Or(f.DeleteErr, ErrDenied)
	}
	return nil
}

func (f *FailingArtifacts) Delete(ctx context.Context, sessionID, filename string) error {
	if err := f.deleteErr(filename); err != nil {
		return err
	}
	return f.ArtifactStore.Delete(ctx, sessionID, filename)
}

func (f *FailingArtifacts) BatchDelete(ctx context.Context, sessionID string, filenames []string) ([]string, error) {
	return artifacts.DeleteEach(ctx, filenames, 1, func(ctx context.Context, filename string) error {
		return f.Delete(ctx, sessionID, filename)
	})
}
