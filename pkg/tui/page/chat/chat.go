// Package chat lays out the chat window: the optional sessions panel, the
// conversation column and the files/workflow side panel.
package chat

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/monitor"
	"github.com/agentmesh/meshchat/pkg/tui/components/files"
	"github.com/agentmesh/meshchat/pkg/tui/components/messages"
	"github.com/agentmesh/meshchat/pkg/tui/components/sessionpanel"
	"github.com/agentmesh/meshchat/pkg/tui/components/spinner"
	"github.com/agentmesh/meshchat/pkg/tui/components/taskdetails"
	"github.com/agentmesh/meshchat/pkg/tui/styles"
)

// Labels of the window's controls.
const (
	ExpandPanelLabel   = "Expand Panel"
	CollapsePanelLabel = "Collapse Panel"
	SendLabel          = "Send message"
	WorkflowLabel      = "View Agent Workflow"
	CancelLabel        = "Cancel"
	CancelingLabel     = "Canceling..."
)

const (
	sidePanelWidth = 44
	// Below this width the side panel is drawn collapsed whatever its state.
	minWindowWidth = 90
	collapsedWidth = 5
	// EditorHeight is the number of input lines.
	EditorHeight = 3
)

// Focus is the region receiving navigation keys.
type Focus int

const (
	FocusEditor Focus = iota
	FocusSessions
	FocusFiles
)

type Props struct {
	Chat    chat.State
	Monitor monitor.State

	SessionsOpen   bool
	SessionsCursor int
	FilesCursor    int
	Focus          Focus

	// Editor is the rendered input box.
	Editor  string
	Spinner spinner.Spinner
	Now     time.Time

	Width  int
	Height int
}

// SidePanelVisible reports whether the side panel is drawn expanded.
func (p Props) SidePanelVisible() bool {
	return !p.Chat.IsSidePanelCollapsed && p.Width >= minWindowWidth
}

func View(p Props) string {
	height := max(p.Height, 10)

	var columns []string
	if p.SessionsOpen {
		columns = append(columns, sessionpanel.View(sessionpanel.Props{
			Sessions:  p.Chat.Sessions,
			CurrentID: p.Chat.SessionID,
			Loading:   p.Chat.SessionsLoading,
			Cursor:    p.SessionsCursor,
			Focused:   p.Focus == FocusSessions,
			Now:       p.Now,
			Height:    height,
		}))
	}

	side := collapsedPanel(height)
	sideWidth := collapsedWidth
	if p.SidePanelVisible() {
		side = sidePanel(p, height)
		sideWidth = sidePanelWidth
	}

	used := sideWidth
	for _, c := range columns {
		used += lipgloss.Width(c)
	}
	mainWidth := max(20, p.Width-used)
	columns = append(columns, mainColumn(p, mainWidth, height), side)

	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

func mainColumn(p Props, width, height int) string {
	header := header(p, width)
	actions := actionBar(p)
	editor := styles.EditorStyle.Width(width).Render(p.Editor)
	hint := styles.DialogHelpStyle.Render("enter " + SendLabel + " · ctrl+n new chat · ctrl+s sessions · ctrl+b panel")

	fixed := lipgloss.Height(header) + lipgloss.Height(editor) + lipgloss.Height(hint)
	if actions != "" {
		fixed += lipgloss.Height(actions)
	}

	agent, _ := p.Chat.SelectedAgent()
	log := messages.View(messages.Props{
		Messages:   p.Chat.Messages,
		AgentTitle: agent.Title(),
		Spinner:    p.Spinner,
		Width:      width - 2,
		Height:     max(1, height-fixed),
	})
	log = lipgloss.PlaceVertical(max(1, height-fixed), lipgloss.Bottom, log)

	parts := []string{header, log}
	if actions != "" {
		parts = append(parts, actions)
	}
	parts = append(parts, editor, hint)

	return styles.AppStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func header(p Props, width int) string {
	name := p.Chat.SelectedAgentName
	description := ""
	if agent, ok := p.Chat.SelectedAgent(); ok {
		name = agent.Title()
		description = agent.Description
	}
	switch {
	case p.Chat.AgentsLoading:
		description = "Loading agents..."
	case p.Chat.AgentsError != nil:
		description = "Agents unavailable: " + p.Chat.AgentsError.Error()
	}
	if name == "" {
		name = "No agent selected"
	}

	left := styles.AgentBadgeStyle.Render(name)
	if description != "" {
		left += styles.MutedStyle.Render(ansi.Truncate(description, max(10, width/2), "…"))
	}

	toggle := "ctrl+b " + ExpandPanelLabel
	if p.SidePanelVisible() {
		toggle = "ctrl+b " + CollapsePanelLabel
	}
	right := styles.MutedStyle.Render(toggle)

	gap := strings.Repeat(" ", max(1, width-2-lipgloss.Width(left)-lipgloss.Width(right)))
	return left + gap + right
}

func actionBar(p Props) string {
	if !p.Chat.IsResponding {
		return ""
	}

	cancel := styles.DangerButtonStyle.Render("esc " + CancelLabel)
	if p.Chat.IsCancelling {
		cancel = styles.ButtonStyle.Foreground(styles.TextMuted).Render(CancelingLabel)
	}
	return lipgloss.JoinHorizontal(lipgloss.Center,
		styles.ButtonStyle.Render("ctrl+w "+WorkflowLabel),
		" ",
		cancel,
	)
}

func collapsedPanel(height int) string {
	return styles.PanelStyle.
		Width(collapsedWidth).
		Height(height).
		Render("»")
}

func sidePanel(p Props, height int) string {
	inner := sidePanelWidth - 4

	tabs := lipgloss.JoinHorizontal(lipgloss.Top,
		tab("Files", p.Chat.ActiveSidePanelTab != chat.TabWorkflow),
		"  ",
		tab("Workflow", p.Chat.ActiveSidePanelTab == chat.TabWorkflow),
	)
	lines := []string{
		styles.MutedStyle.Render("ctrl+b " + CollapsePanelLabel),
		"",
		tabs,
		"",
	}

	var body string
	if p.Chat.ActiveSidePanelTab == chat.TabWorkflow {
		body = workflow(p, inner)
	} else {
		body = filesTab(p, inner, height-len(lines))
	}
	lines = append(lines, body)

	return styles.PanelStyle.
		Width(sidePanelWidth).
		Height(height).
		MaxHeight(height).
		Render(strings.Join(lines, "\n"))
}

func tab(label string, active bool) string {
	if active {
		return styles.TabActiveStyle.Render(label)
	}
	return styles.TabInactiveStyle.Render(label)
}

func filesTab(p Props, width, height int) string {
	if p.Chat.Preview != nil {
		return files.PreviewView(files.PreviewProps{Preview: p.Chat.Preview, Width: width, Height: height})
	}
	return files.View(files.Props{
		Artifacts: p.Chat.Artifacts,
		Loading:   p.Chat.ArtifactsLoading,
		EditMode:  p.Chat.IsArtifactEditMode,
		Selected:  p.Chat.IsArtifactSelected,
		Cursor:    p.FilesCursor,
		Focused:   p.Focus == FocusFiles,
		Width:     width,
	})
}

// WorkflowTaskID is the task the workflow tab shows: the one pinned to the
// side panel, else the one in flight.
func WorkflowTaskID(st chat.State) string {
	if st.TaskIDInSidePanel != "" {
		return st.TaskIDInSidePanel
	}
	return st.CurrentTaskID
}

func workflow(p Props, width int) string {
	lines := []string{connection(p.Monitor)}

	t, ok := p.Monitor.Task(WorkflowTaskID(p.Chat))
	if !ok {
		lines = append(lines, "", taskdetails.Empty())
		return strings.Join(lines, "\n")
	}

	lines = append(lines, "", taskdetails.View(taskdetails.Props{
		Task:              t,
		LoadingMessage:    p.Chat.LoadingMessage(),
		HighlightedStepID: p.Monitor.HighlightedStepID,
		Spinner:           p.Spinner,
		Width:             width,
	}))
	return strings.Join(lines, "\n")
}

func connection(st monitor.State) string {
	switch {
	case st.IsConnected:
		return styles.SuccessStyle.Render("● live")
	case st.IsConnecting:
		return styles.InfoStyle.Render("○ connecting...")
	case st.IsReconnecting:
		return styles.WarningStyle.Render(fmt.Sprintf("○ reconnecting (attempt %d)", st.ReconnectionAttempts))
	case st.LastError != nil:
		return styles.ErrorStyle.Render("✕ " + st.LastError.Error())
	default:
		return styles.MutedStyle.Render("○ offline")
	}
}
