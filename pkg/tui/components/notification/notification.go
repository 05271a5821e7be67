package notification

import (
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/tui/styles"
)

const (
	defaultDuration     = 4 * time.Second
	errorDuration       = 8 * time.Second
	notificationPadding = 2
	maxWidth            = 60
)

// DismissMsg asks the app to drop a notification from the chat store once
// its display time is over.
type DismissMsg struct {
	ID uint64
}

// Manager displays the store's notifications stacked in the bottom right
// corner of the screen and schedules their dismissal.
type Manager struct {
	width, height int
	items         []chat.Notification
	scheduled     map[uint64]struct{}
}

func New() Manager {
	return Manager{
		scheduled: make(map[uint64]struct{}),
	}
}

func (n *Manager) SetSize(width, height int) {
	n.width = width
	n.height = height
}

// Sync replaces the displayed notifications and returns the timers of the
// ones seen for the first time.
func (n *Manager) Sync(items []chat.Notification) tea.Cmd {
	n.items = items

	live := make(map[uint64]struct{}, len(items))
	var cmds []tea.Cmd
	for _, item := range items {
		live[item.ID] = struct{}{}
		if _, ok := n.scheduled[item.ID]; ok {
			continue
		}
		n.scheduled[item.ID] = struct{}{}

		id := item.ID
		cmds = append(cmds, tea.Tick(duration(item.Kind), func(time.Time) tea.Msg {
			return DismissMsg{ID: id}
		}))
	}
	for id := range n.scheduled {
		if _, ok := live[id]; !ok {
			delete(n.scheduled, id)
		}
	}

	return tea.Batch(cmds...)
}

func duration(kind chat.NotificationKind) time.Duration {
	if kind == chat.NotifyError {
		return errorDuration
	}
	return defaultDuration
}

func (n *Manager) View() string {
	if len(n.items) == 0 {
		return ""
	}

	views := make([]string, 0, len(n.items))
	for _, item := range n.items {
		style := styles.NotificationStyleFor(item.Kind)
		if lipgloss.Width(item.Text) > maxWidth {
			style = style.Width(maxWidth)
		}
		views = append(views, style.Render(item.Text))
	}

	return lipgloss.JoinVertical(lipgloss.Right, views...)
}

func (n *Manager) GetLayer() *lipgloss.Layer {
	if len(n.items) == 0 {
		return nil
	}

	view := n.View()
	row, col := n.position(view)

	return lipgloss.NewLayer(view).X(col).Y(row)
}

func (n *Manager) position(view string) (row, col int) {
	row = max(0, n.height-lipgloss.Height(view)-notificationPadding)
	col = max(0, n.width-lipgloss.Width(view)-notificationPadding)
	return row, col
}

func (n *Manager) Open() bool {
	return len(n.items) > 0
}
