package chat

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// RefreshArtifacts reloads the artifact listing of the current session.
// Selected filenames that no longer exist are deselected.
func (s *Store) RefreshArtifacts(ctx context.Context) error {
	if s.artifacts == nil {
		return ErrNoArtifactStore
	}

	var sessionID string
	s.mutate(func(st *State) {
		st.ArtifactsLoading = true
		sessionID = st.SessionID
	})

	list, err := s.artifacts.List(ctx, sessionID)
	s.mutate(func(st *State) {
		st.ArtifactsLoading = false
		if err != nil || st.SessionID != sessionID {
			return
		}
		sortArtifacts(list)
		st.Artifacts = list
		for name := range st.SelectedArtifactFilenames {
			if _, ok := st.Artifact(name); !ok {
				delete(st.SelectedArtifactFilenames, name)
			}
		}
	})
	if err != nil {
		return fmt.Errorf("listing artifacts: %w", err)
	}
	return nil
}

// sortArtifacts orders by most recently modified first.
func sortArtifacts(list []ArtifactInfo) {
	slices.SortStableFunc(list, func(a, b ArtifactInfo) int {
		if c := b.LastModified.Compare(a.LastModified); c != 0 {
			return c
		}
		return cmp.Compare(a.Filename, b.Filename)
	})
}

// UploadArtifact stores content as a new version of filename in the current
// session.
func (s *Store) UploadArtifact(ctx context.Context, filename, mimeType string, content []byte) (ArtifactInfo, error) {
	if s.artifacts == nil {
		return ArtifactInfo{}, ErrNoArtifactStore
	}
	sessionID := s.Snapshot().SessionID

	info, err := s.artifacts.Upload(ctx, sessionID, filename, mimeType, content)
	if err != nil {
		s.AddNotification(fmt.Sprintf("Failed to upload %s: %v", filename, err), NotifyError)
		return ArtifactInfo{}, fmt.Errorf("uploading %s: %w", filename, err)
	}

	s.mutate(func(st *State) {
		if st.SessionID != sessionID {
			return
		}
		st.Artifacts = slices.DeleteFunc(st.Artifacts, func(a ArtifactInfo) bool { return a.Filename == info.Filename })
		st.Artifacts = append(st.Artifacts, info)
		sortArtifacts(st.Artifacts)
	})
	s.AddNotification("Uploaded "+filename, NotifySuccess)
	return info, nil
}

// OpenDeleteModal asks for confirmation before deleting filename.
func (s *Store) OpenDeleteModal(filename string) error {
	var err error
	s.mutate(func(st *State) {
		a, ok := st.Artifact(filename)
		if !ok {
			err = fmt.Errorf("%w: %s", ErrArtifactNotFound, filename)
			return
		}
		st.ArtifactToDelete = &a
		st.IsDeleteModalOpen = true
	})
	return err
}

func (s *Store) CloseDeleteModal() {
	s.mutate(func(st *State) {
		st.IsDeleteModalOpen = false
		st.ArtifactToDelete = nil
	})
}

// ConfirmDelete deletes the artifact the delete modal was opened for. The
// modal is closed whether or not the deletion succeeds.
func (s *Store) ConfirmDelete(ctx context.Context) error {
	if s.artifacts == nil {
		return ErrNoArtifactStore
	}
	snap := s.Snapshot()
	if !snap.IsDeleteModalOpen || snap.ArtifactToDelete == nil {
		return nil
	}
	filename := snap.ArtifactToDelete.Filename

	err := s.artifacts.Delete(ctx, snap.SessionID, filename)
	s.mu.Lock()
	s.state.IsDeleteModalOpen = false
	s.state.ArtifactToDelete = nil
	if err == nil {
		s.removeArtifactsLocked(filename)
		s.addNotificationLocked("Deleted "+filename, NotifySuccess)
	} else {
		s.addNotificationLocked(fmt.Sprintf("Failed to delete %s: %v", filename, err), NotifyError)
	}
	s.mu.Unlock()
	s.changes.Notify()

	if err != nil {
		slog.Error("Failed to delete artifact", "filename", filename, "error", err)
		return fmt.Errorf("deleting %s: %w", filename, err)
	}
	return nil
}

// SetArtifactEditMode toggles multi-select. Leaving edit mode clears the
// selection.
func (s *Store) SetArtifactEditMode(on bool) {
	s.mutate(func(st *State) {
		st.IsArtifactEditMode = on
		if !on {
			clear(st.SelectedArtifactFilenames)
		}
	})
}

func (s *Store) ToggleArtifactSelection(filename string) {
	s.mutate(func(st *State) {
		if _, ok := st.SelectedArtifactFilenames[filename]; ok {
			delete(st.SelectedArtifactFilenames, filename)
			return
		}
		st.SelectedArtifactFilenames[filename] = struct{}{}
	})
}

func (s *Store) SetSelectedArtifactFilenames(filenames []string) {
	s.mutate(func(st *State) {
		clear(st.SelectedArtifactFilenames)
		for _, name := range filenames {
			st.SelectedArtifactFilenames[name] = struct{}{}
		}
	})
}

// DeleteSelectedArtifacts opens the batch delete confirmation. It reports
// false, and does nothing, when nothing is selected.
func (s *Store) DeleteSelectedArtifacts() bool {
	opened := false
	s.mutate(func(st *State) {
		if len(st.SelectedArtifactFilenames) == 0 {
			return
		}
		st.IsBatchDeleteModalOpen = true
		opened = true
	})
	return opened
}

func (s *Store) SetBatchDeleteModalOpen(open bool) {
	s.mutate(func(st *State) { st.IsBatchDeleteModalOpen = open })
}

// ConfirmBatchDelete deletes every selected artifact. Files that could not be
// deleted stay selected.
func (s *Store) ConfirmBatchDelete(ctx context.Context) error {
	if s.artifacts == nil {
		return ErrNoArtifactStore
	}
	snap := s.Snapshot()
	names := snap.SelectedArtifacts()
	if len(names) == 0 {
		s.SetBatchDeleteModalOpen(false)
		return nil
	}

	deleted, err := s.artifacts.BatchDelete(ctx, snap.SessionID, names)

	s.mu.Lock()
	s.state.IsBatchDeleteModalOpen = false
	s.removeArtifactsLocked(deleted...)
	if len(s.state.SelectedArtifactFilenames) == 0 {
		s.state.IsArtifactEditMode = false
	}
	if len(deleted) > 0 {
		s.addNotificationLocked(fmt.Sprintf("Deleted %d of %d files", len(deleted), len(names)), NotifySuccess)
	}
	if err != nil {
		s.addNotificationLocked(fmt.Sprintf("Some files could not be deleted: %v", err), NotifyError)
	}
	s.mu.Unlock()
	s.changes.Notify()

	if err != nil {
		return fmt.Errorf("deleting artifacts: %w", err)
	}
	return nil
}

func (s *Store) removeArtifactsLocked(filenames ...string) {
	st := &s.state
	for _, name := range filenames {
		delete(st.SelectedArtifactFilenames, name)
		if st.Preview != nil && st.Preview.Artifact.Filename == name {
			st.Preview = nil
		}
	}
	st.Artifacts = slices.DeleteFunc(st.Artifacts, func(a ArtifactInfo) bool {
		return slices.Contains(filenames, a.Filename)
	})
}

// OpenArtifactForPreview loads the available versions of filename and the
// content of the latest one.
func (s *Store) OpenArtifactForPreview(ctx context.Context, filename string) (*Preview, error) {
	if s.artifacts == nil {
		return nil, ErrNoArtifactStore
	}
	snap := s.Snapshot()

	versions, err := s.artifacts.Versions(ctx, snap.SessionID, filename)
	if err != nil {
		return nil, s.previewError(filename, err)
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s has no versions", ErrArtifactNotFound, filename)
	}
	versions = slices.Sorted(slices.Values(versions))
	latest := versions[len(versions)-1]

	content, err := s.artifacts.Fetch(ctx, snap.SessionID, filename, latest)
	if err != nil {
		return nil, s.previewError(filename, err)
	}

	info, ok := snap.Artifact(filename)
	if !ok {
		info = ArtifactInfo{Filename: filename, Version: latest, Size: int64(len(content)), MimeType: DetectMimeType(filename)}
	}
	p := &Preview{Artifact: info, Versions: versions, Version: latest, Content: content}

	s.mutate(func(st *State) {
		if st.SessionID == snap.SessionID {
			st.Preview = p.clone()
		}
	})
	return p, nil
}

// NavigateArtifactVersion shows another version of filename. A version that
// is not available returns ErrVersionNotFound and leaves the preview as it
// was.
func (s *Store) NavigateArtifactVersion(ctx context.Context, filename string, version int) (*Preview, error) {
	if s.artifacts == nil {
		return nil, ErrNoArtifactStore
	}
	snap := s.Snapshot()

	base := snap.Preview
	if base == nil || base.Artifact.Filename != filename {
		versions, err := s.artifacts.Versions(ctx, snap.SessionID, filename)
		if err != nil {
			return nil, s.previewError(filename, err)
		}
		info, ok := snap.Artifact(filename)
		if !ok {
			info = ArtifactInfo{Filename: filename, MimeType: DetectMimeType(filename)}
		}
		base = &Preview{Artifact: info, Versions: slices.Sorted(slices.Values(versions))}
	}
	if !base.HasVersion(version) {
		return nil, fmt.Errorf("%w: %s version %d", ErrVersionNotFound, filename, version)
	}

	content, err := s.artifacts.Fetch(ctx, snap.SessionID, filename, version)
	if err != nil {
		return nil, s.previewError(filename, err)
	}

	p := base.clone()
	p.Version = version
	p.Content = content

	s.mutate(func(st *State) {
		if st.SessionID == snap.SessionID {
			st.Preview = p.clone()
		}
	})
	return p, nil
}

func (s *Store) ClosePreview() {
	s.mutate(func(st *State) { st.Preview = nil })
}

// previewError surfaces unexpected failures as a notification; not-found
// errors are left for the caller.
func (s *Store) previewError(filename string, err error) error {
	if errors.Is(err, ErrArtifactNotFound) {
		return fmt.Errorf("previewing %s: %w", filename, err)
	}
	s.AddNotification(fmt.Sprintf("Failed to load %s: %v", filename, err), NotifyError)
	return fmt.Errorf("previewing %s: %w", filename, err)
}
