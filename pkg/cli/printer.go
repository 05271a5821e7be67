// Package cli prints chat, task and artifact data for the non-interactive
// commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/task"
)

type Printer struct {
	out io.Writer

	bold    *color.Color
	muted   *color.Color
	success *color.Color
	failure *color.Color
	info    *color.Color
	accent  *color.Color
}

// NewPrinter prints to out, in color only when out is a terminal.
func NewPrinter(out io.Writer) *Printer {
	p := &Printer{
		out:     out,
		bold:    color.New(color.Bold),
		muted:   color.New(color.Faint),
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed, color.Bold),
		info:    color.New(color.FgCyan),
		accent:  color.New(color.FgMagenta, color.Bold),
	}
	if !isTerminal(out) {
		for _, c := range []*color.Color{p.bold, p.muted, p.success, p.failure, p.info, p.accent} {
			c.DisableColor()
		}
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.out, a...)
}

func (p *Printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.out, format, a...)
}

func (p *Printer) PrintError(err error) {
	p.Printf("%s %v\n", p.failure.Sprint("✕"), err)
}

// PrintAgents lists the agents, marking the selected one.
func (p *Printer) PrintAgents(agents []chat.Agent, selected string) {
	if len(agents) == 0 {
		p.Println(p.muted.Sprint("No agents available"))
		return
	}
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	for _, a := range agents {
		marker := " "
		if a.Name == selected {
			marker = p.accent.Sprint("●")
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s\n", marker, p.bold.Sprint(a.Title()), a.Name, p.muted.Sprint(a.Description))
	}
	tw.Flush()
}

func (p *Printer) PrintSessions(sessions []chat.SessionInfo, now time.Time) {
	if len(sessions) == 0 {
		p.Println(p.muted.Sprint("No chat sessions yet"))
		return
	}
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "Untitled"
		}
		ago := units.HumanDuration(now.Sub(s.UpdatedAt)) + " ago"
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, p.bold.Sprint(title), p.muted.Sprint(ago))
	}
	tw.Flush()
}

func (p *Printer) PrintArtifacts(list []chat.ArtifactInfo) {
	if len(list) == 0 {
		p.Println(p.muted.Sprint("No files available"))
		return
	}
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	for _, a := range list {
		fmt.Fprintf(tw, "%s\tv%d\t%s\t%s\n", p.bold.Sprint(a.Filename), a.Version, units.HumanSize(float64(a.Size)), p.muted.Sprint(a.MimeType))
	}
	tw.Flush()
}

// PrintArtifactContent writes text content as is and pretty prints JSON
// objects keeping their key order. Binary content is summarized.
func (p *Printer) PrintArtifactContent(mimeType string, content []byte) {
	if strings.Contains(mimeType, "json") {
		if formatted, ok := p.formatJSON(content); ok {
			p.Println(formatted)
			return
		}
	}
	if !chat.LooksLikeText(content) {
		p.Println(p.muted.Sprintf("<%s, %s of binary content>", mimeType, units.HumanSize(float64(len(content)))))
		return
	}
	p.Printf("%s", content)
	if len(content) > 0 && content[len(content)-1] != '\n' {
		p.Println()
	}
}

func (p *Printer) formatJSON(content []byte) (string, bool) {
	kv := orderedmap.New[string, any]()
	if err := json.Unmarshal(content, &kv); err != nil {
		return "", false
	}
	if kv.Len() == 0 {
		return "{}", true
	}

	var lines []string
	for key, value := range kv.FromOldest() {
		lines = append(lines, p.formatJSONValue(key, value))
	}
	return strings.Join(lines, "\n"), true
}

func (p *Printer) formatJSONValue(key string, value any) string {
	switch v := value.(type) {
	case string:
		return fmt.Sprintf("%s: %q", p.bold.Sprint(key), v)
	case []any, map[string]any:
		b, _ := json.MarshalIndent(v, "", "  ")
		return fmt.Sprintf("%s: %s", p.bold.Sprint(key), b)
	default:
		b, _ := json.Marshal(v)
		return fmt.Sprintf("%s: %s", p.bold.Sprint(key), b)
	}
}

func (p *Printer) indicator(ind task.Indicator) string {
	switch ind.Kind {
	case task.KindProgress:
		return p.info.Sprint("… " + ind.Label)
	case task.KindSuccess:
		return p.success.Sprint("✓ " + ind.Label)
	case task.KindError:
		return p.failure.Sprint("✕ " + ind.Label)
	default:
		return p.muted.Sprint("• " + ind.Label)
	}
}

// PrintTask prints the status line of a task and, with steps set, its
// steps.
func (p *Printer) PrintTask(t task.VisualizedTask, loadingMessage string, steps bool) {
	p.Printf("%s  %s  %s\n", p.bold.Sprint(t.ID), p.indicator(task.Classify(t.Status, loadingMessage)), t.InitialRequestText)
	if !steps {
		return
	}
	for _, s := range t.Steps {
		line := "    • " + s.Title
		if s.AgentName != "" {
			line += p.muted.Sprint(" · " + s.AgentName)
		}
		p.Println(line)
	}
}

// PrintStep prints one step as it arrives.
func (p *Printer) PrintStep(taskID string, s task.Step) {
	agent := ""
	if s.AgentName != "" {
		agent = p.muted.Sprint(" · " + s.AgentName)
	}
	p.Printf("%s  • %s%s\n", p.muted.Sprint(taskID), s.Title, agent)
}

func (p *Printer) PrintStatus(text string) {
	p.Println(p.info.Sprint("… " + text))
}

func (p *Printer) PrintAgentName(name string) {
	p.Printf("%s\n", p.accent.Sprint(name))
}

func (p *Printer) PrintNotification(n chat.Notification) {
	switch n.Kind {
	case chat.NotifyError:
		p.Println(p.failure.Sprint(n.Text))
	case chat.NotifySuccess:
		p.Println(p.success.Sprint(n.Text))
	default:
		p.Println(p.muted.Sprint(n.Text))
	}
}
