// Package messages renders the conversation log.
package messages

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/tui/components/spinner"
	"github.com/agentmesh/meshchat/pkg/tui/styles"
)

const streamingCursor = "▌"

type Props struct {
	Messages []chat.Message
	// AgentTitle labels agent messages.
	AgentTitle string
	Spinner    spinner.Spinner
	Width      int
	// Height, when set, keeps only the newest lines that fit.
	Height int
}

func View(p Props) string {
	width := max(p.Width, 20)

	blocks := make([]string, 0, len(p.Messages))
	for _, m := range p.Messages {
		blocks = append(blocks, message(m, p, width))
	}
	out := strings.Join(blocks, "\n\n")

	if p.Height > 0 {
		lines := strings.Split(out, "\n")
		if len(lines) > p.Height {
			lines = lines[len(lines)-p.Height:]
		}
		out = strings.Join(lines, "\n")
	}
	return out
}

func message(m chat.Message, p Props, width int) string {
	switch {
	case m.IsStatusBubble:
		return styles.StatusBubbleStyle.Render(p.Spinner.WithMessage(m.Text).View())
	case m.IsUser:
		return styles.UserMessageBorderStyle.Width(width).Render(m.Text)
	}

	text := m.Text
	if !m.IsComplete {
		text += styles.HighlightStyle.Render(streamingCursor)
	}
	title := p.AgentTitle
	if title == "" {
		title = "Agent"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		styles.AgentBadgeStyle.Render(title),
		styles.AgentMessageStyle.Width(width).Render(text),
	)
}
