package notification

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/meshchat/pkg/chat"
)

func TestNotification_InitialState(t *testing.T) {
	t.Parallel()

	n := New()

	require.Empty(t, n.items)
	require.False(t, n.Open())
	require.Nil(t, n.GetLayer())
}

func TestNotification_Sync(t *testing.T) {
	t.Parallel()

	n := New()

	cmd := n.Sync([]chat.Notification{{ID: 1, Text: "Request canceled", Kind: chat.NotifyInfo}})
	require.NotNil(t, cmd)
	require.True(t, n.Open())
	assert.Contains(t, ansi.Strip(n.View()), "Request canceled")

	cmd = n.Sync([]chat.Notification{{ID: 1, Text: "Request canceled", Kind: chat.NotifyInfo}})
	assert.Nil(t, cmd, "already scheduled")

	cmd = n.Sync(nil)
	assert.Nil(t, cmd)
	assert.False(t, n.Open())
	assert.Empty(t, n.scheduled)
}

func TestNotification_Position(t *testing.T) {
	t.Parallel()

	n := New()
	n.SetSize(100, 50)
	n.Sync([]chat.Notification{{ID: 1, Text: "Test"}})

	row, col := n.position(n.View())

	// "Test" inside a rounded border with one cell of padding is 8x3.
	assert.Equal(t, 45, row)
	assert.Equal(t, 90, col)
	require.NotNil(t, n.GetLayer())
}

func TestNotification_StacksInOrder(t *testing.T) {
	t.Parallel()

	n := New()
	n.Sync([]chat.Notification{
		{ID: 1, Text: "first", Kind: chat.NotifySuccess},
		{ID: 2, Text: "second", Kind: chat.NotifyError},
	})

	view := ansi.Strip(n.View())
	assert.Less(t, strings.Index(view, "first"), strings.Index(view, "second"))
}
