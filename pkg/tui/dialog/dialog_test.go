package dialog

import (
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm_View(t *testing.T) {
	t.Parallel()

	out := ansi.Strip(NewChatConfirm().View(100))
	assert.Contains(t, out, "New Chat")
	assert.Contains(t, out, "Start New Chat")
	assert.Contains(t, out, "Cancel")

	out = ansi.Strip(BatchDeleteConfirm([]string{"diagram.png", "plan.md"}).View(100))
	assert.Contains(t, out, "Delete 2 selected files?")
	assert.Contains(t, out, "• diagram.png")

	out = ansi.Strip(BatchDeleteConfirm([]string{"plan.md"}).View(100))
	assert.Contains(t, out, "Delete 1 selected file?")
}

func TestConfirm_Update(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key       tea.KeyPressMsg
		confirmed bool
	}{
		{key: tea.KeyPressMsg{Code: 'y', Text: "y"}, confirmed: true},
		{key: tea.KeyPressMsg{Code: tea.KeyEnter}, confirmed: true},
		{key: tea.KeyPressMsg{Code: 'n', Text: "n"}, confirmed: false},
		{key: tea.KeyPressMsg{Code: tea.KeyEscape}, confirmed: false},
	}

	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			t.Parallel()

			cmd := DeleteArtifactConfirm("plan.md").Update(tt.key)
			require.NotNil(t, cmd)
			assert.Equal(t, ResultMsg{Kind: KindDeleteArtifact, Confirmed: tt.confirmed}, cmd())
		})
	}

	assert.Nil(t, NewChatConfirm().Update(tea.KeyPressMsg{Code: 'x', Text: "x"}))
}

func TestConfirm_Layer(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, NewChatConfirm().Layer(120, 40))
}
