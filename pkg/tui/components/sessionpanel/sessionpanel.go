// Package sessionpanel renders the list of chat sessions shown to the left
// of the conversation.
package sessionpanel

import (
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/docker/go-units"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/tui/styles"
)

const (
	Width = 36

	ToggleLabel   = "Collapse Sessions Panel"
	NewChatLabel  = "New chat"
	untitledTitle = "Untitled chat"
)

type Props struct {
	Sessions  []chat.SessionInfo
	CurrentID string
	Loading   bool
	// Cursor indexes Sessions and is only drawn while Focused.
	Cursor  int
	Focused bool
	Now     time.Time
	Height  int
}

func View(p Props) string {
	inner := Width - 3

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		styles.MutedStyle.Render("≡ "),
		styles.PanelTitleStyle.Render("Sessions"),
	)
	newChat := styles.ButtonStyle.Render("✎ " + NewChatLabel)
	gap := max(1, inner-lipgloss.Width(header)-lipgloss.Width(newChat))
	top := lipgloss.JoinHorizontal(lipgloss.Center, header, strings.Repeat(" ", gap), newChat)

	lines := []string{top, ""}
	switch {
	case p.Loading && len(p.Sessions) == 0:
		lines = append(lines, styles.MutedStyle.Render("Loading sessions..."))
	case len(p.Sessions) == 0:
		lines = append(lines, styles.MutedStyle.Render("No chat sessions yet"))
	}

	for i, s := range p.Sessions {
		lines = append(lines, row(s, p, i, inner)...)
	}

	body := strings.Join(lines, "\n")
	style := styles.BaseStyle.
		Width(Width).
		Padding(0, 1).
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(styles.BorderSecondary)
	if p.Height > 0 {
		style = style.Height(p.Height).MaxHeight(p.Height)
	}
	return style.Render(body)
}

func row(s chat.SessionInfo, p Props, i, width int) []string {
	title := s.Title
	if title == "" {
		title = untitledTitle
	}

	marker := "  "
	style := styles.BaseStyle
	if s.ID == p.CurrentID {
		marker = "▌ "
		style = styles.HighlightStyle.Bold(true)
	}
	if p.Focused && i == p.Cursor {
		style = styles.SelectionStyle
	}

	lines := []string{style.Render(ansi.Truncate(marker+title, width, "…"))}
	if !s.UpdatedAt.IsZero() && !p.Now.IsZero() {
		ago := units.HumanDuration(p.Now.Sub(s.UpdatedAt)) + " ago"
		lines = append(lines, styles.MutedStyle.Render("  "+ago))
	}
	return lines
}
