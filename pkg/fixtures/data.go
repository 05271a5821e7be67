// Package fixtures provides test doubles for the chat and monitor
// collaborators and the canned states the view stories render.
package fixtures

import (
	"time"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/task"
)

const (
	SessionID = "mock-session-id"
	TaskID    = "mock-task-id"
)

// Now is the fixed time every fixture is stamped with.
var Now = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

// Clock returns Now.
func Clock() time.Time { return Now }

func Agents() []chat.Agent {
	return []chat.Agent{
		{
			Name:         "OrchestratorAgent",
			DisplayName:  "Orchestrator",
			Description:  "Coordinates tasks between multiple agents",
			Capabilities: []string{"task_coordination", "agent_selection"},
		},
		{
			Name:         "AssistantAgent",
			DisplayName:  "Assistant",
			Description:  "General purpose assistant agent",
			Capabilities: []string{"conversation", "information_retrieval"},
		},
		{
			Name:         "DeveloperAgent",
			DisplayName:  "Developer",
			Description:  "Specialized in software development tasks",
			Capabilities: []string{"code_generation", "code_review", "debugging"},
		},
	}
}

func Messages() []chat.Message {
	return []chat.Message{
		{
			Text:       "Hi! I'm the Orchestrator Agent. How can I help?",
			IsComplete: true,
			Metadata:   chat.Metadata{SessionID: SessionID, LastProcessedEventSequence: 0},
		},
		{
			IsUser:     true,
			Text:       "Hello! I need help with a coding task.",
			IsComplete: true,
			Metadata:   chat.Metadata{SessionID: SessionID, LastProcessedEventSequence: 1},
		},
		{
			Text:       "I'd be happy to help with your coding task. Could you please provide more details about what you're working on?",
			IsComplete: true,
			Metadata:   chat.Metadata{SessionID: SessionID, LastProcessedEventSequence: 2},
		},
	}
}

func LoadingMessage() chat.Message {
	return chat.Message{
		Text:           "Working on your request...",
		IsStatusBubble: true,
		TaskID:         TaskID,
		Metadata:       chat.Metadata{SessionID: SessionID, LastProcessedEventSequence: 5},
	}
}

func Sessions() []chat.SessionInfo {
	return []chat.SessionInfo{
		{ID: SessionID, Title: "Help with a coding task", CreatedAt: Now.Add(-2 * time.Hour), UpdatedAt: Now.Add(-time.Hour)},
		{ID: "earlier-session-id", Title: "Quarterly report summary", CreatedAt: Now.Add(-48 * time.Hour), UpdatedAt: Now.Add(-47 * time.Hour)},
	}
}

func Artifacts() []chat.ArtifactInfo {
	return []chat.ArtifactInfo{
		{Filename: "plan.md", MimeType: "text/plain", Size: 2048, LastModified: Now.Add(-5 * time.Minute), Version: 2},
		{Filename: "diagram.png", MimeType: "image/png", Size: 184320, LastModified: Now.Add(-20 * time.Minute), Version: 1},
	}
}

// Task returns a task in the given status, started by the second fixture
// message.
func Task(status task.Status) task.VisualizedTask {
	return task.VisualizedTask{
		ID:                 TaskID,
		Status:             status,
		InitialRequestText: "Hello! I need help with a coding task.",
		Steps: []task.Step{
			{ID: "step-1", Title: "Delegated to DeveloperAgent", AgentName: "OrchestratorAgent", Timestamp: Now.Add(-time.Minute)},
			{ID: "step-2", Title: "Reviewing repository layout", AgentName: "DeveloperAgent", Timestamp: Now},
		},
		LastEventSequence: 2,
		CreatedAt:         Now.Add(-2 * time.Minute),
		UpdatedAt:         Now,
	}
}
