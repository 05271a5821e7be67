package server

import (
	"context"
	"slices"
	"time"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/fixtures"
	"github.com/agentmesh/meshchat/pkg/monitor"
	"github.com/agentmesh/meshchat/pkg/task"
)

// staticDirectory serves a fixed agent list.
type staticDirectory []chat.Agent

func (d staticDirectory) List(context.Context) ([]chat.Agent, error) {
	return slices.Clone(d), nil
}

// Demo is a gateway in front of a scripted mesh seeded with the fixture
// sessions, agents, artifacts and one finished task.
type Demo struct {
	*Server
	Sessions *SessionManager
	Feed     *TaskFeed
}

func NewDemo(stepDelay time.Duration) *Demo {
	now := time.Now
	feed := NewTaskFeed(now)
	store := fixtures.ArtifactStore()
	agents := fixtures.Agents()

	sm := NewSessionManager(feed, store, agents, stepDelay, now)
	for _, info := range fixtures.Sessions() {
		var messages []chat.Message
		if info.ID == fixtures.SessionID {
			messages = fixtures.Messages()
		}
		sm.Seed(info, messages)
	}

	done := fixtures.Task(task.StatusCompleted)
	feed.Publish(monitor.Event{TaskID: done.ID, Status: task.StatusSubmitted.String(), RequestText: done.InitialRequestText, Timestamp: done.CreatedAt})
	for _, step := range done.Steps {
		feed.Publish(monitor.Event{TaskID: done.ID, Status: task.StatusWorking.String(), Step: &step, Timestamp: step.Timestamp})
	}
	feed.Publish(monitor.Event{TaskID: done.ID, Status: task.StatusCompleted.String(), Timestamp: done.UpdatedAt})

	return &Demo{
		Server:   New(sm, staticDirectory(agents), store, feed),
		Sessions: sm,
		Feed:     feed,
	}
}
