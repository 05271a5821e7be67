// Package files renders the artifacts of the current session: the listing
// with its edit-mode selection, and the preview pane of one artifact.
package files

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/docker/go-units"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/tui/styles"
)

const (
	EmptyText   = "No files available"
	LoadingText = "Loading files..."
)

type Props struct {
	Artifacts []chat.ArtifactInfo
	Loading   bool
	EditMode  bool
	// Selected reports whether a file is part of the edit-mode selection.
	Selected func(filename string) bool
	Cursor   int
	Focused  bool
	Width    int
}

func View(p Props) string {
	switch {
	case p.Loading && len(p.Artifacts) == 0:
		return styles.MutedStyle.Render(LoadingText)
	case len(p.Artifacts) == 0:
		return styles.MutedStyle.Render(EmptyText)
	}

	width := max(p.Width, 20)
	lines := make([]string, 0, len(p.Artifacts)+2)
	for i, a := range p.Artifacts {
		lines = append(lines, row(a, p, i, width))
	}

	lines = append(lines, "", styles.DialogHelpStyle.Render(help(p)))
	return strings.Join(lines, "\n")
}

func help(p Props) string {
	if p.EditMode {
		return "space select · d delete selected · e done"
	}
	return "enter preview · d delete · e select"
}

func row(a chat.ArtifactInfo, p Props, i, width int) string {
	prefix := ""
	if p.EditMode {
		prefix = "[ ] "
		if p.Selected != nil && p.Selected(a.Filename) {
			prefix = "[x] "
		}
	}

	meta := fmt.Sprintf("%s · v%d", units.HumanSize(float64(a.Size)), a.Version)
	nameWidth := max(4, width-lipgloss.Width(prefix)-lipgloss.Width(meta)-1)
	name := ansi.Truncate(a.Filename, nameWidth, "…")
	gap := strings.Repeat(" ", max(1, width-lipgloss.Width(prefix)-lipgloss.Width(name)-lipgloss.Width(meta)))

	if p.Focused && i == p.Cursor {
		return styles.SelectionStyle.Render(prefix + name + gap + meta)
	}
	return styles.BaseStyle.Render(prefix+name+gap) + styles.MutedStyle.Render(meta)
}

// PreviewProps describes the preview pane.
type PreviewProps struct {
	Preview *chat.Preview
	Width   int
	Height  int
}

func PreviewView(p PreviewProps) string {
	if p.Preview == nil {
		return ""
	}
	a := p.Preview.Artifact
	width := max(p.Width, 20)

	title := styles.PanelTitleStyle.Render(ansi.Truncate(a.Filename, width, "…"))
	versions := make([]string, 0, len(p.Preview.Versions))
	for _, v := range p.Preview.Versions {
		label := fmt.Sprintf("v%d", v)
		if v == p.Preview.Version {
			versions = append(versions, styles.TabActiveStyle.Render(label))
		} else {
			versions = append(versions, styles.TabInactiveStyle.Render(label))
		}
	}

	lines := []string{
		title,
		styles.MutedStyle.Render(fmt.Sprintf("%s · %s", a.MimeType, units.HumanSize(float64(len(p.Preview.Content))))),
		strings.Join(versions, " "),
		"",
	}
	lines = append(lines, content(p.Preview, width, max(1, p.Height-len(lines)-2))...)
	lines = append(lines, "", styles.DialogHelpStyle.Render("[ ] version · esc close"))
	return strings.Join(lines, "\n")
}

func content(p *chat.Preview, width, height int) []string {
	if !chat.LooksLikeText(p.Content) {
		return []string{styles.MutedStyle.Render("Binary content can't be previewed here")}
	}

	text := strings.ReplaceAll(string(p.Content), "\t", "    ")
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) > height {
		hidden := len(lines) - height + 1
		lines = append(lines[:height-1], styles.MutedStyle.Render(fmt.Sprintf("… %d more lines", hidden)))
	}
	for i, l := range lines {
		lines[i] = ansi.Truncate(l, width, "…")
	}
	return lines
}
