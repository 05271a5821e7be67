package tui

import (
	"context"
	"time"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/monitor"
	"github.com/agentmesh/meshchat/pkg/tui/components/notification"
	"github.com/agentmesh/meshchat/pkg/tui/components/spinner"
	"github.com/agentmesh/meshchat/pkg/tui/dialog"
	pagechat "github.com/agentmesh/meshchat/pkg/tui/page/chat"
	"github.com/agentmesh/meshchat/pkg/tui/styles"
	"github.com/agentmesh/meshchat/pkg/tui/subscription"
)

// KeyMap defines global key bindings.
type KeyMap struct {
	Quit          key.Binding
	Submit        key.Binding
	Cancel        key.Binding
	NewChat       key.Binding
	TogglePanel   key.Binding
	Workflow      key.Binding
	Files         key.Binding
	Sessions      key.Binding
	NextAgent     key.Binding
	SwitchFocus   key.Binding
	Up            key.Binding
	Down          key.Binding
	Open          key.Binding
	Delete        key.Binding
	EditMode      key.Binding
	Select        key.Binding
	PrevVersion   key.Binding
	NextVersion   key.Binding
	ClearWorkflow key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:          key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Submit:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", pagechat.SendLabel)),
		Cancel:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", pagechat.CancelLabel)),
		NewChat:       key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new chat")),
		TogglePanel:   key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "toggle panel")),
		Workflow:      key.NewBinding(key.WithKeys("ctrl+w"), key.WithHelp("ctrl+w", pagechat.WorkflowLabel)),
		Files:         key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "files")),
		Sessions:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "sessions")),
		NextAgent:     key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "next agent")),
		SwitchFocus:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch focus")),
		Up:            key.NewBinding(key.WithKeys("up", "k")),
		Down:          key.NewBinding(key.WithKeys("down", "j")),
		Open:          key.NewBinding(key.WithKeys("enter")),
		Delete:        key.NewBinding(key.WithKeys("d", "delete")),
		EditMode:      key.NewBinding(key.WithKeys("e")),
		Select:        key.NewBinding(key.WithKeys("space")),
		PrevVersion:   key.NewBinding(key.WithKeys("[")),
		NextVersion:   key.NewBinding(key.WithKeys("]")),
		ClearWorkflow: key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "clear tasks")),
	}
}

// appModel wires the chat store and the task monitor to the chat window.
// Store and monitor snapshots are re-read on every change signal; the view is
// a function of those snapshots plus the window-local cursor state here.
type appModel struct {
	ctx   context.Context
	store *chat.Store
	mon   *monitor.Monitor

	chatChanges *subscription.Changes
	monChanges  *subscription.Changes
	chatState   chat.State
	monState    monitor.State

	editor        textarea.Model
	spinner       spinner.Spinner
	notifications notification.Manager
	dialog        *dialog.Confirm
	// confirming is set while a confirmed deletion runs; the store keeps its
	// modal flag up until the deletion returns.
	confirming bool
	keyMap     KeyMap

	focus          pagechat.Focus
	sessionsOpen   bool
	sessionsCursor int
	filesCursor    int

	width, height int
	title         string
	now           func() time.Time
}

type Option func(*appModel)

func WithClock(now func() time.Time) Option {
	return func(m *appModel) {
		m.now = now
	}
}

// WithSessionsOpen starts with the sessions panel shown.
func WithSessionsOpen() Option {
	return func(m *appModel) {
		m.sessionsOpen = true
	}
}

func WithTitle(title string) Option {
	return func(m *appModel) {
		m.title = title
	}
}

// New creates the chat window. The monitor may be nil when no task stream is
// configured.
func New(ctx context.Context, store *chat.Store, mon *monitor.Monitor, opts ...Option) tea.Model {
	editor := textarea.New()
	editor.SetStyles(styles.InputStyle)
	editor.Placeholder = "Type a message..."
	editor.ShowLineNumbers = false
	editor.Prompt = ""
	editor.CharLimit = -1
	editor.SetHeight(pagechat.EditorHeight)
	editor.Focus()

	m := &appModel{
		ctx:           ctx,
		store:         store,
		mon:           mon,
		chatChanges:   subscription.Follow(subscription.SourceChat, store),
		editor:        editor,
		spinner:       spinner.New(spinner.ModeBoth, chat.DefaultStatusText),
		notifications: notification.New(),
		keyMap:        DefaultKeyMap(),
		title:         "meshchat",
		now:           time.Now,
	}
	if mon != nil {
		m.monChanges = subscription.Follow(subscription.SourceMonitor, mon)
		m.monState = mon.Snapshot()
	}
	for _, opt := range opts {
		opt(m)
	}
	m.chatState = store.Snapshot()
	m.editor.SetValue(m.chatState.UserInput)
	return m
}

func (m *appModel) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.chatChanges.Listen(),
		m.spinner.Init(),
		textarea.Blink,
		m.loadAgents(),
		m.refreshSessions(),
		m.refreshArtifacts(),
	}
	if m.mon != nil {
		cmds = append(cmds, m.monChanges.Listen(), m.connectMonitor())
	}
	return tea.Batch(cmds...)
}

func (m *appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.notifications.SetSize(msg.Width, msg.Height)
		m.editor.SetWidth(max(10, msg.Width/2))
		return m, nil

	case subscription.ChangedMsg:
		return m, m.handleChanged(msg)

	case notification.DismissMsg:
		m.store.DismissNotification(msg.ID)
		return m, nil

	case dialog.ResultMsg:
		return m, m.handleDialogResult(msg)

	case actionErrMsg:
		return m, m.handleActionErr(msg)

	case tea.KeyPressMsg:
		return m.handleKeyPress(msg)
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	if cmd != nil {
		return m, cmd
	}
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m *appModel) handleChanged(msg subscription.ChangedMsg) tea.Cmd {
	switch msg.Source {
	case subscription.SourceMonitor:
		m.monState = m.mon.Snapshot()
		return m.monChanges.Listen()
	default:
		m.chatState = m.store.Snapshot()
		m.syncDialog()
		m.clampCursors()
		return tea.Batch(m.chatChanges.Listen(), m.notifications.Sync(m.chatState.Notifications))
	}
}

// syncDialog mirrors the store's modal flags. The new-chat confirmation is
// local to the window and survives store changes.
func (m *appModel) syncDialog() {
	st := m.chatState
	if !st.IsDeleteModalOpen && !st.IsBatchDeleteModalOpen {
		m.confirming = false
	}
	switch {
	case m.confirming:
		m.dialog = nil
	case st.IsDeleteModalOpen && st.ArtifactToDelete != nil:
		d := dialog.DeleteArtifactConfirm(st.ArtifactToDelete.Filename)
		m.dialog = &d
	case st.IsBatchDeleteModalOpen:
		d := dialog.BatchDeleteConfirm(st.SelectedArtifacts())
		m.dialog = &d
	case m.dialog != nil && m.dialog.Kind != dialog.KindNewChat:
		m.dialog = nil
	}
}

func (m *appModel) clampCursors() {
	m.sessionsCursor = min(max(0, m.sessionsCursor), max(0, len(m.chatState.Sessions)-1))
	m.filesCursor = min(max(0, m.filesCursor), max(0, len(m.chatState.Artifacts)-1))
}

func (m *appModel) handleKeyPress(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keyMap.Quit) {
		m.cleanup()
		return m, tea.Quit
	}
	if m.dialog != nil {
		return m, m.dialog.Update(msg)
	}

	switch {
	case key.Matches(msg, m.keyMap.NewChat):
		d := dialog.NewChatConfirm()
		m.dialog = &d
		return m, nil
	case key.Matches(msg, m.keyMap.TogglePanel):
		m.store.ToggleSidePanel()
		return m, nil
	case key.Matches(msg, m.keyMap.Workflow):
		m.openWorkflow()
		return m, nil
	case key.Matches(msg, m.keyMap.Files):
		m.store.OpenSidePanelTab(chat.TabFiles)
		m.focus = pagechat.FocusFiles
		return m, m.refreshArtifacts()
	case key.Matches(msg, m.keyMap.Sessions):
		m.sessionsOpen = !m.sessionsOpen
		if !m.sessionsOpen && m.focus == pagechat.FocusSessions {
			m.focus = pagechat.FocusEditor
		}
		if m.sessionsOpen {
			return m, m.refreshSessions()
		}
		return m, nil
	case key.Matches(msg, m.keyMap.NextAgent):
		m.selectNextAgent()
		return m, nil
	case key.Matches(msg, m.keyMap.ClearWorkflow):
		if m.mon != nil {
			m.mon.ClearTasks()
		}
		return m, nil
	case key.Matches(msg, m.keyMap.SwitchFocus):
		m.switchFocus()
		return m, nil
	}

	switch m.focus {
	case pagechat.FocusSessions:
		return m, m.handleSessionsKey(msg)
	case pagechat.FocusFiles:
		return m, m.handleFilesKey(msg)
	default:
		return m, m.handleEditorKey(msg)
	}
}

func (m *appModel) handleEditorKey(msg tea.KeyPressMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keyMap.Submit):
		m.store.SetUserInput(m.editor.Value())
		m.editor.Reset()
		return m.submit()
	case key.Matches(msg, m.keyMap.Cancel):
		if m.chatState.IsResponding {
			return m.cancel()
		}
		return nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	m.store.SetUserInput(m.editor.Value())
	return cmd
}

func (m *appModel) handleSessionsKey(msg tea.KeyPressMsg) tea.Cmd {
	sessions := m.chatState.Sessions
	switch {
	case key.Matches(msg, m.keyMap.Up):
		m.sessionsCursor = max(0, m.sessionsCursor-1)
	case key.Matches(msg, m.keyMap.Down):
		m.sessionsCursor = min(len(sessions)-1, m.sessionsCursor+1)
	case key.Matches(msg, m.keyMap.Open):
		if m.sessionsCursor < len(sessions) {
			return m.switchSession(sessions[m.sessionsCursor].ID)
		}
	case key.Matches(msg, m.keyMap.Cancel):
		m.focus = pagechat.FocusEditor
	}
	return nil
}

func (m *appModel) handleFilesKey(msg tea.KeyPressMsg) tea.Cmd {
	st := m.chatState
	if st.Preview != nil {
		switch {
		case key.Matches(msg, m.keyMap.PrevVersion):
			return m.navigateVersion(-1)
		case key.Matches(msg, m.keyMap.NextVersion):
			return m.navigateVersion(1)
		case key.Matches(msg, m.keyMap.Cancel):
			m.store.ClosePreview()
		}
		return nil
	}

	var current string
	if m.filesCursor < len(st.Artifacts) {
		current = st.Artifacts[m.filesCursor].Filename
	}

	switch {
	case key.Matches(msg, m.keyMap.Up):
		m.filesCursor = max(0, m.filesCursor-1)
	case key.Matches(msg, m.keyMap.Down):
		m.filesCursor = min(len(st.Artifacts)-1, m.filesCursor+1)
	case key.Matches(msg, m.keyMap.EditMode):
		m.store.SetArtifactEditMode(!st.IsArtifactEditMode)
	case key.Matches(msg, m.keyMap.Select):
		if st.IsArtifactEditMode && current != "" {
			m.store.ToggleArtifactSelection(current)
		}
	case key.Matches(msg, m.keyMap.Delete):
		if st.IsArtifactEditMode {
			m.store.DeleteSelectedArtifacts()
		} else if current != "" {
			return m.openDeleteModal(current)
		}
	case key.Matches(msg, m.keyMap.Open):
		if current != "" && !st.IsArtifactEditMode {
			return m.openPreview(current)
		}
	case key.Matches(msg, m.keyMap.Cancel):
		if st.IsArtifactEditMode {
			m.store.SetArtifactEditMode(false)
		} else {
			m.focus = pagechat.FocusEditor
		}
	}
	return nil
}

func (m *appModel) switchFocus() {
	order := []pagechat.Focus{pagechat.FocusEditor}
	if m.sessionsOpen {
		order = append(order, pagechat.FocusSessions)
	}
	if m.page().SidePanelVisible() && m.chatState.ActiveSidePanelTab == chat.TabFiles {
		order = append(order, pagechat.FocusFiles)
	}

	next := order[0]
	for i, f := range order {
		if f == m.focus {
			next = order[(i+1)%len(order)]
			break
		}
	}
	m.focus = next
	if next == pagechat.FocusEditor {
		m.editor.Focus()
	} else {
		m.editor.Blur()
	}
}

// openWorkflow pins the task in flight to the side panel and shows it.
func (m *appModel) openWorkflow() {
	if id := m.chatState.CurrentTaskID; id != "" {
		m.store.SetTaskIDInSidePanel(id)
	}
	m.store.OpenSidePanelTab(chat.TabWorkflow)
	if m.focus == pagechat.FocusFiles {
		m.focus = pagechat.FocusEditor
	}
}

func (m *appModel) selectNextAgent() {
	agents := m.chatState.Agents
	if len(agents) == 0 {
		return
	}
	next := 0
	for i, a := range agents {
		if a.Name == m.chatState.SelectedAgentName {
			next = (i + 1) % len(agents)
			break
		}
	}
	m.store.SelectAgent(agents[next].Name)
}

func (m *appModel) page() pagechat.Props {
	return pagechat.Props{
		Chat:           m.chatState,
		Monitor:        m.monState,
		SessionsOpen:   m.sessionsOpen,
		SessionsCursor: m.sessionsCursor,
		FilesCursor:    m.filesCursor,
		Focus:          m.focus,
		Editor:         m.editor.View(),
		Spinner:        m.spinner,
		Now:            m.now(),
		Width:          m.width,
		Height:         m.height,
	}
}

// View renders the model.
func (m *appModel) View() tea.View {
	if m.width == 0 {
		return toFullscreenView(styles.MutedStyle.Render("Loading…"), m.title)
	}

	layers := []*lipgloss.Layer{lipgloss.NewLayer(pagechat.View(m.page()))}
	if m.dialog != nil {
		layers = append(layers, m.dialog.Layer(m.width, m.height))
	}
	if layer := m.notifications.GetLayer(); layer != nil {
		layers = append(layers, layer)
	}

	return toFullscreenView(lipgloss.NewCanvas(layers...).Render(), m.title)
}

func (m *appModel) cleanup() {
	m.chatChanges.Close()
	if m.monChanges != nil {
		m.monChanges.Close()
	}
	if m.mon != nil {
		m.mon.Disconnect()
	}
}

func toFullscreenView(content, windowTitle string) tea.View {
	view := tea.NewView(content)
	view.AltScreen = true
	view.MouseMode = tea.MouseModeCellMotion
	view.BackgroundColor = styles.Background
	view.WindowTitle = windowTitle
	return view
}
