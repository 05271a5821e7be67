// Package taskdetails renders the summary of one monitored task: the request
// that started it, its classified status and the steps observed so far.
package taskdetails

import (
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/agentmesh/meshchat/pkg/task"
	"github.com/agentmesh/meshchat/pkg/tui/components/spinner"
	"github.com/agentmesh/meshchat/pkg/tui/components/statusbadge"
	"github.com/agentmesh/meshchat/pkg/tui/styles"
)

const labelWidth = 8

type Props struct {
	Task task.VisualizedTask
	// LoadingMessage is the text of the first status bubble of the chat.
	LoadingMessage    string
	HighlightedStepID string
	Spinner           spinner.Spinner
	Width             int
}

func View(p Props) string {
	width := max(p.Width, labelWidth+10)
	valueWidth := width - labelWidth

	label := styles.MutedStyle.Width(labelWidth)
	rows := []string{
		lipgloss.JoinHorizontal(lipgloss.Top,
			label.Render("User"),
			ansi.Truncate(p.Task.InitialRequestText, valueWidth, "…"),
		),
		lipgloss.JoinHorizontal(lipgloss.Top,
			label.Render("Status"),
			ansi.Truncate(statusbadge.ForStatus(p.Task.Status, p.LoadingMessage, p.Spinner), valueWidth, "…"),
		),
	}

	if len(p.Task.Steps) > 0 {
		rows = append(rows, "", styles.PanelTitleStyle.Render("Steps"))
		for _, step := range p.Task.Steps {
			rows = append(rows, stepRow(step, step.ID == p.HighlightedStepID, width))
		}
	}

	return strings.Join(rows, "\n")
}

func stepRow(step task.Step, highlighted bool, width int) string {
	marker := "• "
	style := styles.BaseStyle
	if highlighted {
		marker = "▸ "
		style = styles.SelectionStyle
	}

	text := step.Title
	if step.AgentName != "" {
		text += styles.MutedStyle.Render(" · " + step.AgentName)
	}
	return style.Render(ansi.Truncate(marker+text, width, "…"))
}

// Empty is shown in the workflow tab when no task is selected.
func Empty() string {
	return styles.MutedStyle.Render("No task selected")
}
