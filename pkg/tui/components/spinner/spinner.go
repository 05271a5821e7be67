package spinner

import (
	"strings"
	"sync/atomic"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/agentmesh/meshchat/pkg/tui/styles"
)

type Mode int

const (
	ModeBoth Mode = iota
	ModeSpinnerOnly
)

var lastID atomic.Int64

type tickMsg struct {
	tag int
	id  int
}

// Spinner is the animated progress indicator of in-flight tasks. In ModeBoth
// a light sweeps over the message.
type Spinner struct {
	styledFrames  []string
	mode          Mode
	message       string
	lightPosition int
	frame         int
	id            int
	tag           int
	direction     int // 1 for forward, -1 for backward
	pauseFrames   int
}

func New(mode Mode, message string) Spinner {
	frames := make([]string, len(spinnerChars))
	for i, char := range spinnerChars {
		frames[i] = styles.SpinnerCharStyle.Render(char)
	}

	return Spinner{
		styledFrames:  frames,
		mode:          mode,
		message:       message,
		lightPosition: -3,
		id:            int(lastID.Add(1)),
		direction:     1,
	}
}

// WithMessage swaps the text without restarting the animation.
func (s Spinner) WithMessage(message string) Spinner {
	if message != s.message {
		s.message = message
		s.lightPosition = -3
		s.direction = 1
		s.pauseFrames = 0
	}
	return s
}

func (s Spinner) Message() string {
	return s.message
}

func (s Spinner) Update(message tea.Msg) (Spinner, tea.Cmd) {
	msg, ok := message.(tickMsg)
	if !ok || (msg.id > 0 && msg.id != s.id) || (msg.tag > 0 && msg.tag != s.tag) {
		return s, nil
	}

	s.tag++
	s.frame++

	if s.mode == ModeBoth {
		if s.pauseFrames > 0 {
			s.pauseFrames--
			if s.pauseFrames == 0 {
				s.direction = -1
			}
		} else {
			s.lightPosition += s.direction
			if s.direction == 1 && s.lightPosition > len([]rune(s.message))+2 {
				s.pauseFrames = 6
			} else if s.direction == -1 && s.lightPosition < -3 {
				s.direction = 1
			}
		}
	}

	return s, s.Tick()
}

func (s Spinner) View() string {
	frame := s.styledFrames[s.frame%len(s.styledFrames)]
	if s.mode == ModeSpinnerOnly || s.message == "" {
		return frame
	}
	return frame + " " + s.renderMessage()
}

func (s Spinner) Init() tea.Cmd { return s.Tick() }

func (s Spinner) Tick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{id: s.id, tag: s.tag}
	})
}

var spinnerChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// lightStyles maps distance from light position to style (0=brightest, 3+=dimmest).
var lightStyles = []lipgloss.Style{
	styles.SpinnerTextBrightestStyle,
	styles.SpinnerTextBrightStyle,
	styles.SpinnerTextDimStyle,
	styles.SpinnerTextDimmestStyle,
}

func (s Spinner) renderMessage() string {
	var out strings.Builder
	for i, char := range []rune(s.message) {
		dist := min(max(i-s.lightPosition, s.lightPosition-i), len(lightStyles)-1)
		out.WriteString(lightStyles[dist].Render(string(char)))
	}
	return out.String()
}
