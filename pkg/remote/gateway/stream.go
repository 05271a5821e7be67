package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agentmesh/meshchat/pkg/monitor"
)

// TaskEvents returns the task event stream served over server-sent events.
func (c *Client) TaskEvents() *SSEStream {
	return &SSEStream{client: c}
}

// SSEStream subscribes to GET /api/tasks/events.
type SSEStream struct {
	client *Client
}

var _ monitor.Stream = (*SSEStream)(nil)

func (s *SSEStream) Subscribe(ctx context.Context) (<-chan monitor.Event, <-chan error, error) {
	body, err := s.client.openStream(ctx, http.MethodGet, s.client.endpoint(RouteTaskEvents), nil)
	if err != nil {
		return nil, nil, err
	}

	events := make(chan monitor.Event, 64)
	errs := make(chan error, 1)
	go func() {
		defer close(events)
		defer body.Close()

		err := readEvents(body, func(data []byte) bool {
			var ev monitor.Event
			if err := json.Unmarshal(data, &ev); err != nil {
				slog.Debug("Skipping malformed task event", "error", err)
				return true
			}
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err != nil && ctx.Err() == nil {
			errs <- err
		}
	}()
	return events, errs, nil
}

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
)

// TaskEventsWS returns the task event stream served over a WebSocket.
func (c *Client) TaskEventsWS(header http.Header) *WSStream {
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + RouteTaskEventsWS
	return NewWSStream(u.String(), header)
}

// WSStream reads task events sent as JSON text messages.
type WSStream struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
}

var _ monitor.Stream = (*WSStream)(nil)

func NewWSStream(url string, header http.Header) *WSStream {
	return &WSStream{
		url:    url,
		header: header,
		dialer: websocket.DefaultDialer,
	}
}

func (s *WSStream) Subscribe(ctx context.Context) (<-chan monitor.Event, <-chan error, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		return nil, nil, fmt.Errorf("dialing %s: %w", s.url, err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		conn.Close()
		return nil, nil, err
	}
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(wsWriteWait))
	})

	events := make(chan monitor.Event, 64)
	errs := make(chan error, 1)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			conn.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(events)
		defer close(done)
		defer conn.Close()

		for {
			var ev monitor.Event
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					errs <- err
				}
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, errs, nil
}
