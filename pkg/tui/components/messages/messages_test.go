package messages

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/fixtures"
	"github.com/agentmesh/meshchat/pkg/tui/components/spinner"
)

func TestView(t *testing.T) {
	t.Parallel()

	msgs := append(fixtures.Messages(), fixtures.LoadingMessage())
	out := ansi.Strip(View(Props{
		Messages:   msgs,
		AgentTitle: "Orchestrator",
		Spinner:    spinner.New(spinner.ModeBoth, ""),
		Width:      80,
	}))

	assert.Contains(t, out, "Hi! I'm the Orchestrator Agent. How can I help?")
	assert.Contains(t, out, "Hello! I need help with a coding task.")
	assert.Contains(t, out, "Orchestrator")
	assert.Contains(t, out, "⠋ Working on your request...")
	assert.Less(t, strings.Index(out, "Hello!"), strings.Index(out, "Working on your request"))
}

func TestView_StreamingCursor(t *testing.T) {
	t.Parallel()

	out := ansi.Strip(View(Props{
		Messages: []chat.Message{{Text: "partial"}},
		Width:    40,
	}))
	assert.Contains(t, out, "partial"+streamingCursor)
	assert.Contains(t, out, "Agent")
}

func TestView_KeepsNewestLines(t *testing.T) {
	t.Parallel()

	out := ansi.Strip(View(Props{
		Messages: fixtures.Messages(),
		Width:    200,
		Height:   2,
	}))
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, out, "Could you please provide more details")
}
