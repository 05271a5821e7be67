package gateway

import (
	"cmp"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/task"
)

var _ chat.Backend = (*Client)(nil)

func (c *Client) CreateSession(ctx context.Context) (chat.SessionInfo, error) {
	var info chat.SessionInfo
	err := c.doRequest(ctx, http.MethodPost, c.endpoint(RouteSessions), nil, &info)
	return info, err
}

func (c *Client) ListSessions(ctx context.Context) ([]chat.SessionInfo, error) {
	var sessions []chat.SessionInfo
	err := c.doRequest(ctx, http.MethodGet, c.endpoint(RouteSessions), nil, &sessions)
	return sessions, err
}

func (c *Client) LoadSession(ctx context.Context, sessionID string) ([]chat.Message, error) {
	var messages []chat.Message
	err := c.doRequest(ctx, http.MethodGet, c.endpoint(RouteSessions, sessionID, "messages"), nil, &messages)
	return messages, err
}

// Submit posts the turn and streams the reply deltas from the response.
func (c *Client) Submit(ctx context.Context, req chat.SubmitRequest) (<-chan chat.Delta, error) {
	body, err := c.openStream(ctx, http.MethodPost, c.endpoint(RouteSessions, req.SessionID, "messages"), SubmitRequest{
		AgentName: req.AgentName,
		Text:      req.Text,
	})
	if err != nil {
		return nil, err
	}

	out := make(chan chat.Delta, 16)
	go func() {
		defer close(out)
		defer body.Close()

		lastSeq := req.LastSequence
		var taskID string
		err := readEvents(body, func(data []byte) bool {
			var ev DeltaEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				slog.Debug("Skipping malformed delta", "error", err)
				return true
			}
			d, err := ev.Delta(req.SessionID)
			if err != nil {
				slog.Debug("Skipping delta", "error", err)
				return true
			}
			lastSeq = max(lastSeq, d.Sequence)
			taskID = cmp.Or(d.TaskID, taskID)
			select {
			case out <- d:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err == nil || ctx.Err() != nil {
			return
		}
		slog.Warn("Reply stream failed", "session_id", req.SessionID, "error", err)
		final := chat.Delta{
			SessionID: req.SessionID,
			TaskID:    taskID,
			Sequence:  lastSeq + 1,
			Kind:      chat.DeltaTaskFinal,
			Status:    task.StatusFailed.String(),
			Text:      "reply stream interrupted: " + err.Error(),
		}
		select {
		case out <- final:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

func (c *Client) Cancel(ctx context.Context, sessionID, taskID string) error {
	return c.doRequest(ctx, http.MethodPost, c.endpoint(RouteSessions, sessionID, "tasks", taskID, "cancel"), nil, nil)
}

// Agents returns the gateway's agent directory.
func (c *Client) Agents() *Directory {
	return &Directory{client: c}
}

// Directory is the gateway's list of mesh agents.
type Directory struct {
	client *Client
}

var _ chat.AgentDirectory = (*Directory)(nil)

func (d *Directory) List(ctx context.Context) ([]chat.Agent, error) {
	var agents []chat.Agent
	err := d.client.doRequest(ctx, http.MethodGet, d.client.endpoint(RouteAgents), nil, &agents)
	return agents, err
}
