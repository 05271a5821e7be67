package fixtures

import (
	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/monitor"
	"github.com/agentmesh/meshchat/pkg/task"
)

// ChatState is the baseline chat state: a short conversation with the
// orchestrator selected and the side panel collapsed.
func ChatState() chat.State {
	return chat.State{
		SessionID:                 SessionID,
		Messages:                  Messages(),
		SelectedAgentName:         "OrchestratorAgent",
		Agents:                    Agents(),
		Sessions:                  Sessions(),
		IsSidePanelCollapsed:      true,
		ActiveSidePanelTab:        chat.TabFiles,
		SelectedArtifactFilenames: map[string]struct{}{},
	}
}

// LoadingChatState is ChatState while the agent works on a request.
func LoadingChatState() chat.State {
	st := ChatState()
	st.Messages = append(st.Messages, LoadingMessage())
	st.IsResponding = true
	st.CurrentTaskID = TaskID
	return st
}

// SidePanelOpenChatState is ChatState with the files panel open and no
// files.
func SidePanelOpenChatState() chat.State {
	st := ChatState()
	st.IsSidePanelCollapsed = false
	st.Artifacts = nil
	return st
}

// FilesChatState is ChatState with the files panel open on two artifacts.
func FilesChatState() chat.State {
	st := SidePanelOpenChatState()
	st.Artifacts = Artifacts()
	return st
}

// MonitorState is a connected monitor holding tasks in the given order.
func MonitorState(tasks ...task.VisualizedTask) monitor.State {
	st := monitor.State{
		IsConnected: true,
		Tasks:       make(map[string]task.VisualizedTask, len(tasks)),
	}
	for _, t := range tasks {
		st.Tasks[t.ID] = t
		st.TaskOrder = append(st.TaskOrder, t.ID)
	}
	return st
}

// WorkflowChatState is ChatState with the workflow tab open on the fixture
// task. A task still in progress keeps the loading message in the log.
func WorkflowChatState(status task.Status) chat.State {
	st := ChatState()
	if status.IsActive() {
		st = LoadingChatState()
	}
	st.IsSidePanelCollapsed = false
	st.ActiveSidePanelTab = chat.TabWorkflow
	st.TaskIDInSidePanel = TaskID
	return st
}
