// Package stories names canned window states and renders them without a
// terminal. They back `meshchat stories` and the view regression tests.
package stories

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/fixtures"
	"github.com/agentmesh/meshchat/pkg/monitor"
	"github.com/agentmesh/meshchat/pkg/task"
	"github.com/agentmesh/meshchat/pkg/tui/components/spinner"
	"github.com/agentmesh/meshchat/pkg/tui/dialog"
	pagechat "github.com/agentmesh/meshchat/pkg/tui/page/chat"
	"github.com/agentmesh/meshchat/pkg/tui/styles"
)

const (
	DefaultWidth  = 120
	DefaultHeight = 36
)

type Story struct {
	Name        string
	Description string

	Chat         chat.State
	Monitor      monitor.State
	SessionsOpen bool
	Focus        pagechat.Focus
	Dialog       *dialog.Confirm
}

func All() []Story {
	newChat := dialog.NewChatConfirm()
	batchDelete := dialog.BatchDeleteConfirm([]string{"diagram.png"})

	editMode := fixtures.FilesChatState()
	editMode.IsArtifactEditMode = true
	editMode.SelectedArtifactFilenames = map[string]struct{}{"diagram.png": {}}
	editMode.IsBatchDeleteModalOpen = true

	preview := fixtures.FilesChatState()
	preview.Preview = &chat.Preview{
		Artifact: fixtures.Artifacts()[0],
		Versions: []int{1, 2},
		Version:  2,
		Content:  []byte("# Plan\n\n- reproduce the failure\n- propose a fix\n"),
	}

	all := []Story{
		{Name: "Default", Description: "Conversation with the side panel collapsed", Chat: fixtures.ChatState()},
		{Name: "WithLoadingMessage", Description: "Agent working on a request", Chat: fixtures.LoadingChatState()},
		{Name: "WithSidePanelOpen", Description: "Files panel open without files", Chat: fixtures.SidePanelOpenChatState()},
		{Name: "WithFiles", Description: "Files panel listing two artifacts", Chat: fixtures.FilesChatState(), Focus: pagechat.FocusFiles},
		{Name: "WithFilesEditMode", Description: "Batch delete confirmation", Chat: editMode, Focus: pagechat.FocusFiles, Dialog: &batchDelete},
		{Name: "WithPreview", Description: "Artifact preview at its latest version", Chat: preview, Focus: pagechat.FocusFiles},
		{Name: "SessionPanel", Description: "Sessions list next to the conversation", Chat: fixtures.ChatState(), SessionsOpen: true},
		{Name: "NewChatDialog", Description: "New chat confirmation", Chat: fixtures.ChatState(), Dialog: &newChat},
	}

	for _, status := range []task.Status{
		task.StatusWorking,
		task.StatusInputRequired,
		task.StatusCompleted,
		task.StatusCanceled,
		task.StatusFailed,
		task.StatusUnknown,
	} {
		all = append(all, Story{
			Name:        "TaskDetails" + storyName(status),
			Description: fmt.Sprintf("Workflow tab, task %s", status),
			Chat:        fixtures.WorkflowChatState(status),
			Monitor:     fixtures.MonitorState(fixtures.Task(status)),
		})
	}
	return all
}

// storyName turns "input-required" into "InputRequired".
func storyName(status task.Status) string {
	var b strings.Builder
	for part := range strings.SplitSeq(status.String(), "-") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	return b.String()
}

// Find looks a story up by name, ignoring case.
func Find(name string) (Story, bool) {
	for _, s := range All() {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Story{}, false
}

// Index lists the stories, one per line.
func Index() string {
	var b strings.Builder
	for _, s := range All() {
		fmt.Fprintf(&b, "%-26s %s\n", s.Name, s.Description)
	}
	return b.String()
}

// Render draws the story on a width x height screen. Animations are frozen on
// their first frame.
func Render(s Story, width, height int) string {
	page := pagechat.View(pagechat.Props{
		Chat:         s.Chat,
		Monitor:      s.Monitor,
		SessionsOpen: s.SessionsOpen,
		Focus:        s.Focus,
		Editor:       styles.MutedStyle.Render("Type a message..."),
		Spinner:      spinner.New(spinner.ModeBoth, ""),
		Now:          fixtures.Now,
		Width:        width,
		Height:       height,
	})
	if s.Dialog == nil {
		return page
	}
	return lipgloss.NewCanvas(lipgloss.NewLayer(page), s.Dialog.Layer(width, height)).Render()
}
