// Package dialog holds the modal confirmations of the chat window.
package dialog

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/agentmesh/meshchat/pkg/tui/styles"
)

// ConfirmKeyMap defines key bindings for confirmation dialogs.
type ConfirmKeyMap struct {
	Yes key.Binding
	No  key.Binding
}

func DefaultConfirmKeyMap() ConfirmKeyMap {
	return ConfirmKeyMap{
		Yes: key.NewBinding(
			key.WithKeys("y", "Y", "enter"),
			key.WithHelp("Y", "yes"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("N", "no"),
		),
	}
}

// Kind tells the app which action a confirmation guards.
type Kind int

const (
	KindNewChat Kind = iota
	KindDeleteArtifact
	KindBatchDelete
)

// ResultMsg is emitted when the user answers a confirmation.
type ResultMsg struct {
	Kind      Kind
	Confirmed bool
}

// Confirm is a yes/no question drawn centered over the window.
type Confirm struct {
	Kind         Kind
	Title        string
	Question     string
	Details      []string
	ConfirmLabel string
	Warning      bool

	keyMap ConfirmKeyMap
}

func NewChatConfirm() Confirm {
	return Confirm{
		Kind:         KindNewChat,
		Title:        "New Chat",
		Question:     "Start a new chat? The current conversation stays in the sessions list.",
		ConfirmLabel: "Start New Chat",
		keyMap:       DefaultConfirmKeyMap(),
	}
}

func DeleteArtifactConfirm(filename string) Confirm {
	return Confirm{
		Kind:         KindDeleteArtifact,
		Title:        "Delete File",
		Question:     fmt.Sprintf("Delete %s and all of its versions?", filename),
		ConfirmLabel: "Delete",
		Warning:      true,
		keyMap:       DefaultConfirmKeyMap(),
	}
}

func BatchDeleteConfirm(filenames []string) Confirm {
	noun := "files"
	if len(filenames) == 1 {
		noun = "file"
	}
	return Confirm{
		Kind:         KindBatchDelete,
		Title:        "Delete Files",
		Question:     fmt.Sprintf("Delete %d selected %s?", len(filenames), noun),
		Details:      filenames,
		ConfirmLabel: "Delete",
		Warning:      true,
		keyMap:       DefaultConfirmKeyMap(),
	}
}

// Update answers the dialog on y/n. Other keys are swallowed so the window
// below does not react while the dialog is open.
func (d Confirm) Update(msg tea.KeyPressMsg) tea.Cmd {
	switch {
	case key.Matches(msg, d.keyMap.Yes):
		return answer(d.Kind, true)
	case key.Matches(msg, d.keyMap.No):
		return answer(d.Kind, false)
	}
	return nil
}

func answer(kind Kind, confirmed bool) tea.Cmd {
	return func() tea.Msg {
		return ResultMsg{Kind: kind, Confirmed: confirmed}
	}
}

func (d Confirm) View(screenWidth int) string {
	dialogWidth := min(max(screenWidth/2, 40), 64, max(screenWidth-4, 20))
	contentWidth := max(10, dialogWidth-6)

	title, box := styles.DialogTitleStyle, styles.DialogStyle
	if d.Warning {
		title, box = styles.DialogTitleWarningStyle, styles.DialogWarningStyle
	}

	lines := []string{
		title.Width(contentWidth).Render(d.Title),
		styles.MutedStyle.Render(strings.Repeat("─", contentWidth)),
		"",
		styles.DialogContentStyle.Width(contentWidth).Render(d.Question),
	}
	for _, detail := range d.Details {
		lines = append(lines, styles.MutedStyle.Render("  • "+detail))
	}

	confirm := styles.ButtonStyle
	if d.Warning {
		confirm = styles.DangerButtonStyle
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Center,
		confirm.Render("Y "+d.ConfirmLabel),
		" ",
		styles.ButtonStyle.Render("N Cancel"),
	)
	lines = append(lines, "", lipgloss.PlaceHorizontal(contentWidth, lipgloss.Center, buttons))

	return box.Width(dialogWidth).Render(strings.Join(lines, "\n"))
}

// Layer centers the dialog on a screen of the given size.
func (d Confirm) Layer(width, height int) *lipgloss.Layer {
	view := d.View(width)
	row := max(0, (height-lipgloss.Height(view))/2)
	col := max(0, (width-lipgloss.Width(view))/2)
	return lipgloss.NewLayer(view).X(col).Y(row)
}
