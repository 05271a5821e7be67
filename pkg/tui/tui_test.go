package tui

import (
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/fixtures"
	"github.com/agentmesh/meshchat/pkg/monitor"
	"github.com/agentmesh/meshchat/pkg/task"
	"github.com/agentmesh/meshchat/pkg/tui/components/notification"
	"github.com/agentmesh/meshchat/pkg/tui/dialog"
	pagechat "github.com/agentmesh/meshchat/pkg/tui/page/chat"
	"github.com/agentmesh/meshchat/pkg/tui/subscription"
)

const (
	eventuallyTimeout = 2 * time.Second
	eventuallyTick    = 5 * time.Millisecond
)

func newModel(t *testing.T, opts ...chat.Option) (*appModel, *chat.Store, *fixtures.Backend) {
	t.Helper()

	backend := fixtures.NewBackend()
	opts = append([]chat.Option{
		chat.WithSessionID(fixtures.SessionID),
		chat.WithClock(fixtures.Clock),
		chat.WithAgentDirectory(fixtures.NewDirectory()),
		chat.WithArtifactStore(fixtures.ArtifactStore()),
	}, opts...)
	store := chat.NewStore(backend, opts...)

	m := New(t.Context(), store, nil, WithClock(fixtures.Clock)).(*appModel)
	t.Cleanup(m.cleanup)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 36})
	return m, store, backend
}

func press(m *appModel, keys ...tea.KeyPressMsg) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(k)
	}
	return cmd
}

// drain runs cmd and feeds the messages it produces back into the model.
func drain(m *appModel, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	msg := cmd()
	if msg == nil {
		return
	}
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			drain(m, c)
		}
		return
	}
	_, next := m.Update(msg)
	if _, ok := msg.(dialog.ResultMsg); ok {
		drain(m, next)
	}
}

// refresh re-reads both snapshots as a change signal would.
func refresh(m *appModel) {
	m.chatState = m.store.Snapshot()
	m.syncDialog()
	if m.mon != nil {
		m.monState = m.mon.Snapshot()
	}
}

func text(s string) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: []rune(s)[0], Text: s}
}

var (
	keyEnter = tea.KeyPressMsg{Code: tea.KeyEnter}
	keyEsc   = tea.KeyPressMsg{Code: tea.KeyEscape}
	keyTab   = tea.KeyPressMsg{Code: tea.KeyTab}
)

func ctrl(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Mod: tea.ModCtrl}
}

func TestTogglePanel(t *testing.T) {
	t.Parallel()

	m, store, _ := newModel(t)
	require.True(t, store.Snapshot().IsSidePanelCollapsed)
	assert.Contains(t, ansi.Strip(m.View().Content), pagechat.ExpandPanelLabel)

	press(m, ctrl('b'))
	assert.False(t, store.Snapshot().IsSidePanelCollapsed)

	refresh(m)
	assert.Contains(t, ansi.Strip(m.View().Content), pagechat.CollapsePanelLabel)
}

func TestSubmitAndCancel(t *testing.T) {
	t.Parallel()

	m, store, backend := newModel(t)

	press(m, text("h"), text("i"))
	assert.Equal(t, "hi", store.Snapshot().UserInput)

	drain(m, press(m, keyEnter))
	st := store.Snapshot()
	require.True(t, st.IsResponding)
	assert.Equal(t, "hi", st.Messages[len(st.Messages)-2].Text)
	assert.Empty(t, m.editor.Value())

	refresh(m)
	view := ansi.Strip(m.View().Content)
	assert.Contains(t, view, pagechat.WorkflowLabel)
	assert.Contains(t, view, chat.DefaultStatusText)

	require.True(t, backend.Emit(chat.Delta{SessionID: fixtures.SessionID, TaskID: "task-1", Sequence: 1, Kind: chat.DeltaTaskStarted}))
	require.Eventually(t, func() bool { return store.Snapshot().CurrentTaskID == "task-1" }, eventuallyTimeout, eventuallyTick)
	refresh(m)

	drain(m, press(m, keyEsc))
	st = store.Snapshot()
	assert.False(t, st.IsResponding)
	assert.Equal(t, 1, backend.Canceled.Length())
}

func TestEmptySubmitIsIgnored(t *testing.T) {
	t.Parallel()

	m, store, backend := newModel(t)

	drain(m, press(m, keyEnter))
	assert.False(t, store.Snapshot().IsResponding)
	assert.Equal(t, 0, backend.Submitted.Length())
	assert.Empty(t, store.Snapshot().Notifications)
}

func TestNewChatDialog(t *testing.T) {
	t.Parallel()

	m, store, _ := newModel(t)

	press(m, ctrl('n'))
	require.NotNil(t, m.dialog)
	assert.Contains(t, ansi.Strip(m.View().Content), "Start New Chat")

	drain(m, press(m, text("n")))
	assert.Nil(t, m.dialog)
	assert.Equal(t, fixtures.SessionID, store.Snapshot().SessionID)

	press(m, ctrl('n'))
	drain(m, press(m, text("y")))
	assert.Nil(t, m.dialog)
	assert.Equal(t, "new-session-id", store.Snapshot().SessionID)
}

func TestDeleteArtifactFlow(t *testing.T) {
	t.Parallel()

	m, store, _ := newModel(t)
	require.NoError(t, store.RefreshArtifacts(t.Context()))
	store.OpenSidePanelTab(chat.TabFiles)
	refresh(m)

	press(m, keyTab)
	require.Equal(t, pagechat.FocusFiles, m.focus)

	drain(m, press(m, text("d")))
	refresh(m)
	require.NotNil(t, m.dialog)
	assert.Equal(t, dialog.KindDeleteArtifact, m.dialog.Kind)

	drain(m, press(m, text("y")))
	refresh(m)
	assert.Nil(t, m.dialog)
	st := store.Snapshot()
	require.Len(t, st.Artifacts, 1)
	assert.Equal(t, "plan.md", st.Artifacts[0].Filename)
}

func TestBatchDeleteFlow(t *testing.T) {
	t.Parallel()

	m, store, _ := newModel(t)
	require.NoError(t, store.RefreshArtifacts(t.Context()))
	store.OpenSidePanelTab(chat.TabFiles)
	refresh(m)
	press(m, keyTab)

	press(m, text("e"))
	refresh(m)
	require.True(t, store.Snapshot().IsArtifactEditMode)

	press(m, tea.KeyPressMsg{Code: tea.KeySpace, Text: " "})
	refresh(m)
	press(m, text("j"), tea.KeyPressMsg{Code: tea.KeySpace, Text: " "})
	refresh(m)
	assert.Len(t, store.Snapshot().SelectedArtifacts(), 2)

	press(m, text("d"))
	refresh(m)
	require.NotNil(t, m.dialog)
	assert.Equal(t, dialog.KindBatchDelete, m.dialog.Kind)

	drain(m, press(m, text("y")))
	st := store.Snapshot()
	assert.Empty(t, st.Artifacts)
	assert.False(t, st.IsArtifactEditMode)
}

func TestPreviewNavigation(t *testing.T) {
	t.Parallel()

	m, store, _ := newModel(t)
	require.NoError(t, store.RefreshArtifacts(t.Context()))
	store.OpenSidePanelTab(chat.TabFiles)
	refresh(m)
	press(m, keyTab)

	// Artifacts modified at the same time are listed by name.
	drain(m, press(m, text("j"), keyEnter))
	refresh(m)
	require.NotNil(t, m.chatState.Preview)
	assert.Equal(t, "plan.md", m.chatState.Preview.Artifact.Filename)
	assert.Equal(t, 2, m.chatState.Preview.Version)

	drain(m, press(m, text("[")))
	refresh(m)
	assert.Equal(t, 1, m.chatState.Preview.Version)

	assert.Nil(t, press(m, text("[")), "no version before the first")

	press(m, keyEsc)
	assert.Nil(t, store.Snapshot().Preview)
}

func TestSessionsPanel(t *testing.T) {
	t.Parallel()

	m, store, _ := newModel(t)

	drain(m, press(m, ctrl('s')))
	require.True(t, m.sessionsOpen)
	refresh(m)
	assert.Contains(t, ansi.Strip(m.View().Content), "Quarterly report summary")

	press(m, keyTab)
	require.Equal(t, pagechat.FocusSessions, m.focus)

	// earlier-session-id has no history in the fake backend.
	drain(m, press(m, text("j"), keyEnter))
	assert.Equal(t, fixtures.SessionID, store.Snapshot().SessionID)
	assert.NotEmpty(t, store.Snapshot().Notifications)
}

func TestWorkflowShowsMonitoredTask(t *testing.T) {
	t.Parallel()

	backend := fixtures.NewBackend()
	store := chat.NewStore(backend,
		chat.WithState(fixtures.LoadingChatState()),
		chat.WithClock(fixtures.Clock),
	)
	mon := monitor.New(fixtures.NewStream(), monitor.WithTasks(fixtures.Task(task.StatusWorking)), monitor.WithConnected())

	m := New(t.Context(), store, mon).(*appModel)
	t.Cleanup(m.cleanup)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 36})

	press(m, ctrl('w'))
	st := store.Snapshot()
	assert.Equal(t, chat.TabWorkflow, st.ActiveSidePanelTab)
	assert.Equal(t, fixtures.TaskID, st.TaskIDInSidePanel)
	assert.False(t, st.IsSidePanelCollapsed)

	refresh(m)
	view := ansi.Strip(m.View().Content)
	assert.Contains(t, view, "● live")
	assert.Contains(t, view, "Steps")
	assert.Contains(t, view, "Working on your request...")

	press(m, ctrl('x'))
	assert.Empty(t, mon.Snapshot().Tasks)
}

func TestNextAgent(t *testing.T) {
	t.Parallel()

	m, store, _ := newModel(t)
	require.NoError(t, store.LoadAgents(t.Context()))
	refresh(m)
	first := store.Snapshot().SelectedAgentName

	press(m, ctrl('a'))
	assert.NotEqual(t, first, store.Snapshot().SelectedAgentName)
}

func TestNotificationsAreDismissed(t *testing.T) {
	t.Parallel()

	m, store, _ := newModel(t)
	id := store.AddNotification("Saved", chat.NotifySuccess)

	_, cmd := m.Update(subscription.ChangedMsg{Source: subscription.SourceChat})
	require.NotNil(t, cmd)
	assert.Contains(t, ansi.Strip(m.View().Content), "Saved")

	m.Update(notification.DismissMsg{ID: id})
	assert.Empty(t, store.Snapshot().Notifications)
}
