package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	tea "charm.land/bubbletea/v2"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/tui/dialog"
	pagechat "github.com/agentmesh/meshchat/pkg/tui/page/chat"
)

// actionErrMsg carries the failure of a store action run as a command.
type actionErrMsg struct {
	action string
	err    error
}

// run executes a blocking store action off the UI loop.
func run(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return actionErrMsg{action: action, err: err}
		}
		return nil
	}
}

func (m *appModel) submit() tea.Cmd {
	return run("submit", func() error { return m.store.Submit(m.ctx) })
}

func (m *appModel) cancel() tea.Cmd {
	return run("cancel", func() error { return m.store.Cancel(m.ctx) })
}

func (m *appModel) loadAgents() tea.Cmd {
	return run("load agents", func() error { return m.store.LoadAgents(m.ctx) })
}

func (m *appModel) refreshSessions() tea.Cmd {
	return run("refresh sessions", func() error { return m.store.RefreshSessions(m.ctx) })
}

func (m *appModel) refreshArtifacts() tea.Cmd {
	return run("refresh artifacts", func() error { return m.store.RefreshArtifacts(m.ctx) })
}

func (m *appModel) connectMonitor() tea.Cmd {
	return run("connect", func() error { return m.mon.Connect(m.ctx) })
}

func (m *appModel) switchSession(id string) tea.Cmd {
	if id == m.chatState.SessionID {
		m.focus = pagechat.FocusEditor
		return nil
	}
	return run("switch session", func() error {
		if err := m.store.SwitchSession(m.ctx, id); err != nil {
			return err
		}
		return m.store.RefreshArtifacts(m.ctx)
	})
}

func (m *appModel) newChat() tea.Cmd {
	return run("new chat", func() error {
		m.store.NewSession(m.ctx)
		if err := m.store.RefreshSessions(m.ctx); err != nil {
			return err
		}
		return m.store.RefreshArtifacts(m.ctx)
	})
}

func (m *appModel) openDeleteModal(filename string) tea.Cmd {
	return run("delete", func() error { return m.store.OpenDeleteModal(filename) })
}

func (m *appModel) openPreview(filename string) tea.Cmd {
	return run("preview", func() error {
		_, err := m.store.OpenArtifactForPreview(m.ctx, filename)
		return err
	})
}

// navigateVersion steps the preview to the neighbouring available version.
func (m *appModel) navigateVersion(step int) tea.Cmd {
	p := m.chatState.Preview
	i := slices.Index(p.Versions, p.Version) + step
	if i < 0 || i >= len(p.Versions) {
		return nil
	}
	filename, version := p.Artifact.Filename, p.Versions[i]
	return run("navigate version", func() error {
		_, err := m.store.NavigateArtifactVersion(m.ctx, filename, version)
		return err
	})
}

func (m *appModel) handleDialogResult(msg dialog.ResultMsg) tea.Cmd {
	m.dialog = nil

	switch msg.Kind {
	case dialog.KindNewChat:
		if msg.Confirmed {
			return m.newChat()
		}
	case dialog.KindDeleteArtifact:
		if !msg.Confirmed {
			m.store.CloseDeleteModal()
			return nil
		}
		m.confirming = true
		return run("delete", func() error { return m.store.ConfirmDelete(m.ctx) })
	case dialog.KindBatchDelete:
		if !msg.Confirmed {
			m.store.SetBatchDeleteModalOpen(false)
			return nil
		}
		m.confirming = true
		return run("batch delete", func() error { return m.store.ConfirmBatchDelete(m.ctx) })
	}
	return nil
}

// handleActionErr surfaces failures the stores do not report themselves.
// Rejections caused by the current state are expected and only logged.
func (m *appModel) handleActionErr(msg actionErrMsg) tea.Cmd {
	switch {
	case errors.Is(msg.err, chat.ErrEmptyInput),
		errors.Is(msg.err, chat.ErrResponseInFlight),
		errors.Is(msg.err, chat.ErrNothingToCancel),
		errors.Is(msg.err, chat.ErrNoArtifactStore):
		slog.Debug("Action rejected", "action", msg.action, "error", msg.err)
	case msg.action == "refresh sessions", msg.action == "connect":
		slog.Warn("Action failed", "action", msg.action, "error", msg.err)
		m.store.AddNotification(fmt.Sprintf("Could not %s: %v", msg.action, msg.err), chat.NotifyWarning)
	case errors.Is(msg.err, chat.ErrArtifactNotFound):
		m.store.AddNotification(msg.err.Error(), chat.NotifyWarning)
		return m.refreshArtifacts()
	default:
		slog.Debug("Action failed", "action", msg.action, "error", msg.err)
	}
	return nil
}
