package chat_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/fixtures"
)

func newArtifactStore(t *testing.T, store chat.ArtifactStore) *chat.Store {
	t.Helper()

	s, _ := newStore(t, chat.WithArtifactStore(store))
	require.NoError(t, s.RefreshArtifacts(t.Context()))
	return s
}

func TestRefreshArtifacts(t *testing.T) {
	t.Parallel()

	store := newArtifactStore(t, fixtures.ArtifactStore())

	st := store.Snapshot()
	assert.False(t, st.ArtifactsLoading)
	require.Len(t, st.Artifacts, 2)
	plan, ok := st.Artifact("plan.md")
	require.True(t, ok)
	assert.Equal(t, 2, plan.Version)
}

func TestRefreshArtifacts_PrunesSelection(t *testing.T) {
	t.Parallel()

	backing := fixtures.ArtifactStore()
	store := newArtifactStore(t, backing)
	store.SetSelectedArtifactFilenames([]string{"plan.md", "diagram.png"})

	require.NoError(t, backing.Delete(t.Context(), fixtures.SessionID, "diagram.png"))
	require.NoError(t, store.RefreshArtifacts(t.Context()))

	assert.Equal(t, []string{"plan.md"}, store.Snapshot().SelectedArtifacts())
}

func TestRefreshArtifacts_NoStore(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)
	require.ErrorIs(t, store.RefreshArtifacts(t.Context()), chat.ErrNoArtifactStore)
}

func TestUploadArtifact(t *testing.T) {
	t.Parallel()

	store := newArtifactStore(t, fixtures.ArtifactStore())

	info, err := store.UploadArtifact(t.Context(), "plan.md", "text/plain", []byte("v3"))
	require.NoError(t, err)
	assert.Equal(t, 3, info.Version)

	st := store.Snapshot()
	assert.Len(t, st.Artifacts, 2)
	plan, _ := st.Artifact("plan.md")
	assert.Equal(t, 3, plan.Version)
	assert.Equal(t, chat.NotifySuccess, st.Notifications[len(st.Notifications)-1].Kind)
}

func TestUploadArtifact_Failure(t *testing.T) {
	t.Parallel()

	store := newArtifactStore(t, &fixtures.FailingArtifacts{
		ArtifactStore: fixtures.ArtifactStore(),
		UploadErr:     errors.New("disk full"),
	})

	_, err := store.UploadArtifact(t.Context(), "notes.txt", "", []byte("x"))
	require.ErrorContains(t, err, "disk full")

	st := store.Snapshot()
	assert.Len(t, st.Artifacts, 2)
	require.Len(t, st.Notifications, 1)
	assert.Equal(t, chat.NotifyError, st.Notifications[0].Kind)
}

func TestDeleteModal(t *testing.T) {
	t.Parallel()

	store := newArtifactStore(t, fixtures.ArtifactStore())

	require.ErrorIs(t, store.OpenDeleteModal("missing.txt"), chat.ErrArtifactNotFound)
	assert.False(t, store.Snapshot().IsDeleteModalOpen)

	require.NoError(t, store.OpenDeleteModal("plan.md"))
	st := store.Snapshot()
	assert.True(t, st.IsDeleteModalOpen)
	require.NotNil(t, st.ArtifactToDelete)
	assert.Equal(t, "plan.md", st.ArtifactToDelete.Filename)

	store.CloseDeleteModal()
	st = store.Snapshot()
	assert.False(t, st.IsDeleteModalOpen)
	assert.Nil(t, st.ArtifactToDelete)
}

func TestConfirmDelete(t *testing.T) {
	t.Parallel()

	store := newArtifactStore(t, fixtures.ArtifactStore())
	_, err := store.OpenArtifactForPreview(t.Context(), "plan.md")
	require.NoError(t, err)
	require.NoError(t, store.OpenDeleteModal("plan.md"))

	require.NoError(t, store.ConfirmDelete(t.Context()))

	st := store.Snapshot()
	assert.False(t, st.IsDeleteModalOpen)
	_, ok := st.Artifact("plan.md")
	assert.False(t, ok)
	assert.Nil(t, st.Preview, "deleting the previewed file closes the preview")
}

func TestConfirmDelete_Failure(t *testing.T) {
	t.Parallel()

	store := newArtifactStore(t, &fixtures.FailingArtifacts{
		ArtifactStore: fixtures.ArtifactStore(),
		DeleteErr:     errors.New("forbidden"),
	})
	require.NoError(t, store.OpenDeleteModal("plan.md"))

	require.ErrorContains(t, store.ConfirmDelete(t.Context()), "forbidden")

	st := store.Snapshot()
	assert.False(t, st.IsDeleteModalOpen)
	_, ok := st.Artifact("plan.md")
	assert.True(t, ok)
	assert.Equal(t, chat.NotifyError, st.Notifications[len(st.Notifications)-1].Kind)
}

func TestEditModeSelection(t *testing.T) {
	t.Parallel()

	store := newArtifactStore(t, fixtures.ArtifactStore())

	assert.False(t, store.DeleteSelectedArtifacts(), "nothing selected")
	assert.False(t, store.Snapshot().IsBatchDeleteModalOpen)

	store.SetArtifactEditMode(true)
	store.ToggleArtifactSelection("plan.md")
	store.ToggleArtifactSelection("diagram.png")
	store.ToggleArtifactSelection("plan.md")
	assert.Equal(t, []string{"diagram.png"}, store.Snapshot().SelectedArtifacts())

	assert.True(t, store.DeleteSelectedArtifacts())
	assert.True(t, store.Snapshot().IsBatchDeleteModalOpen)
	store.SetBatchDeleteModalOpen(false)

	store.SetArtifactEditMode(false)
	st := store.Snapshot()
	assert.False(t, st.IsArtifactEditMode)
	assert.Empty(t, st.SelectedArtifacts())
}

func TestConfirmBatchDelete(t *testing.T) {
	t.Parallel()

	store := newArtifactStore(t, fixtures.ArtifactStore())
	store.SetArtifactEditMode(true)
	store.SetSelectedArtifactFilenames([]string{"plan.md", "diagram.png"})
	require.True(t, store.DeleteSelectedArtifacts())

	require.NoError(t, store.ConfirmBatchDelete(t.Context()))

	st := store.Snapshot()
	assert.Empty(t, st.Artifacts)
	assert.Empty(t, st.SelectedArtifacts())
	assert.False(t, st.IsBatchDeleteModalOpen)
	assert.False(t, st.IsArtifactEditMode)
}

func TestConfirmBatchDelete_PartialFailure(t *testing.T) {
	t.Parallel()

	store := newArtifactStore(t, &fixtures.FailingArtifacts{
		ArtifactStore: fixtures.ArtifactStore(),
		FailDeleting:  "diagram",
	})
	store.SetArtifactEditMode(true)
	store.SetSelectedArtifactFilenames([]string{"plan.md", "diagram.png"})

	err := store.ConfirmBatchDelete(t.Context())
	require.ErrorIs(t, err, fixtures.ErrDenied)

	st := store.Snapshot()
	require.Len(t, st.Artifacts, 1)
	assert.Equal(t, "diagram.png", st.Artifacts[0].Filename)
	assert.Equal(t, []string{"diagram.png"}, st.SelectedArtifacts(), "failed files stay selected")
	assert.True(t, st.IsArtifactEditMode)
	assert.False(t, st.IsBatchDeleteModalOpen)
}

func TestPreview(t *testing.T) {
	t.Parallel()

	store := newArtifactStore(t, fixtures.ArtifactStore())

	p, err := store.OpenArtifactForPreview(t.Context(), "plan.md")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, p.Versions)
	assert.Equal(t, 2, p.Version)
	assert.Contains(t, string(p.Content), "propose a fix")

	p, err = store.NavigateArtifactVersion(t.Context(), "plan.md", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Version)
	assert.Equal(t, "# Plan\n\n- draft\n", string(p.Content))

	st := store.Snapshot()
	require.NotNil(t, st.Preview)
	assert.Equal(t, 1, st.Preview.Version)
	assert.Equal(t, "plan.md", st.Preview.Artifact.Filename)

	store.ClosePreview()
	assert.Nil(t, store.Snapshot().Preview)
}

func TestNavigateArtifactVersion_UnknownVersionLeavesStateAlone(t *testing.T) {
	t.Parallel()

	store := newArtifactStore(t, fixtures.ArtifactStore())
	_, err := store.NavigateArtifactVersion(t.Context(), "plan.md", 1)
	require.NoError(t, err)
	before := store.Snapshot()

	p, err := store.NavigateArtifactVersion(t.Context(), "plan.md", 7)
	require.ErrorIs(t, err, chat.ErrVersionNotFound)
	assert.Nil(t, p)

	after := store.Snapshot()
	assert.Equal(t, before.Preview, after.Preview)
	assert.Equal(t, before.Notifications, after.Notifications)
}

func TestOpenArtifactForPreview_NotFound(t *testing.T) {
	t.Parallel()

	store := newArtifactStore(t, fixtures.ArtifactStore())

	_, err := store.OpenArtifactForPreview(t.Context(), "missing.txt")
	require.ErrorIs(t, err, chat.ErrArtifactNotFound)

	st := store.Snapshot()
	assert.Nil(t, st.Preview)
	assert.Empty(t, st.Notifications, "not-found is left to the caller")
}

func TestOpenArtifactForPreview_FetchFailure(t *testing.T) {
	t.Parallel()

	store := newArtifactStore(t, &fixtures.FailingArtifacts{
		ArtifactStore: fixtures.ArtifactStore(),
		FetchErr:      errors.New("timeout"),
	})

	_, err := store.OpenArtifactForPreview(t.Context(), "plan.md")
	require.ErrorContains(t, err, "timeout")
	assert.Len(t, store.Snapshot().Notifications, 1)
}
