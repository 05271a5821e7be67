// Package artifacts implements chat.ArtifactStore backends: an in-memory
// store, an S3-compatible object store and a read-through cache in front of
// either.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/agentmesh/meshchat/pkg/chat"
)

// ErrNotFound aliases chat.ErrArtifactNotFound so callers of this package
// need not import chat to test for it.
var ErrNotFound = chat.ErrArtifactNotFound

// DefaultDeleteConcurrency bounds parallel deletes in DeleteEach.
const DefaultDeleteConcurrency = 4

func validateName(sessionID, filename string) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("session id is required")
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return errors.New("filename is required")
	}
	if strings.ContainsAny(filename, `/\`) || filename == "." || filename == ".." {
		return fmt.Errorf("invalid filename %q", filename)
	}
	return nil
}

// DeleteEach calls del for every filename with bounded concurrency. It
// returns the sorted filenames that were deleted and the joined errors of
// the ones that were not; one failure does not stop the others.
func DeleteEach(ctx context.Context, filenames []string, limit int, del func(ctx context.Context, filename string) error) ([]string, error) {
	if limit <= 0 {
		limit = DefaultDeleteConcurrency
	}

	var (
		mu      sync.Mutex
		deleted []string
		errs    []error
	)
	var g errgroup.Group
	g.SetLimit(limit)
	for _, name := range slices.Compact(slices.Sorted(slices.Values(filenames))) {
		g.Go(func() error {
			err := del(ctx, name)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return nil
			}
			deleted = append(deleted, name)
			return nil
		})
	}
	_ = g.Wait()

	slices.Sort(deleted)
	return deleted, errors.Join(errs...)
}
