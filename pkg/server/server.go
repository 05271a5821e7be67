// Package server is a mesh gateway: it serves sessions, turns, artifacts,
// the agent directory and the task event stream over HTTP for any chat
// backend. `meshchat serve` runs it in front of a scripted mesh for demos
// and end-to-end tests.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/agentmesh/meshchat/pkg/artifacts"
	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/monitor"
	"github.com/agentmesh/meshchat/pkg/remote/gateway"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTaskNotFound    = errors.New("task not found")
)

const (
	wsWriteWait = 10 * time.Second
	wsPingEvery = 30 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type Server struct {
	e         *echo.Echo
	backend   chat.Backend
	directory chat.AgentDirectory
	artifacts chat.ArtifactStore
	tasks     monitor.Stream
}

func New(backend chat.Backend, directory chat.AgentDirectory, store chat.ArtifactStore, tasks monitor.Stream) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())

	s := &Server{
		e:         e,
		backend:   backend,
		directory: directory,
		artifacts: store,
		tasks:     tasks,
	}

	group := e.Group("/api")

	group.GET("/agents", s.getAgents)

	group.GET("/sessions", s.getSessions)
	group.POST("/sessions", s.createSession)
	group.GET("/sessions/:id/messages", s.getMessages)
	// Run a turn, streaming the reply as server-sent events
	group.POST("/sessions/:id/messages", s.submit)
	group.POST("/sessions/:id/tasks/:task/cancel", s.cancelTask)

	group.GET("/sessions/:id/artifacts", s.listArtifacts)
	group.POST("/sessions/:id/artifacts/batch-delete", s.batchDeleteArtifacts)
	group.POST("/sessions/:id/artifacts/:file", s.uploadArtifact)
	group.DELETE("/sessions/:id/artifacts/:file", s.deleteArtifact)
	group.GET("/sessions/:id/artifacts/:file/versions", s.artifactVersions)
	group.GET("/sessions/:id/artifacts/:file/versions/:version", s.fetchArtifact)

	group.GET("/tasks/events", s.taskEvents)
	group.GET("/tasks/ws", s.taskEventsWS)

	// Health check endpoint
	group.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return s
}

// Handler exposes the routes, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := http.Server{
		Handler:           s.e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && ctx.Err() == nil {
		slog.Error("Failed to start server", "error", err)
		return err
	}

	return nil
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		msg = fmt.Sprint(he.Message)
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrTaskNotFound), errors.Is(err, chat.ErrArtifactNotFound):
		code = http.StatusNotFound
	}

	if err := c.JSON(code, gateway.ErrorResponse{Error: msg}); err != nil {
		slog.Debug("Failed to write error response", "error", err)
	}
}

// param returns an unescaped path parameter.
func param(c echo.Context, name string) string {
	raw := c.Param(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func (s *Server) getAgents(c echo.Context) error {
	if s.directory == nil {
		return c.JSON(http.StatusOK, []chat.Agent{})
	}
	agents, err := s.directory.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, agents)
}

func (s *Server) getSessions(c echo.Context) error {
	sessions, err := s.backend.ListSessions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessions)
}

func (s *Server) createSession(c echo.Context) error {
	info, err := s.backend.CreateSession(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) getMessages(c echo.Context) error {
	messages, err := s.backend.LoadSession(c.Request().Context(), param(c, "id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messages)
}

func (s *Server) submit(c echo.Context) error {
	sessionID := param(c, "id")

	var req gateway.SubmitRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}

	slog.Debug("Submitting turn", "session_id", sessionID, "agent", req.AgentName)

	deltas, err := s.backend.Submit(c.Request().Context(), chat.SubmitRequest{
		SessionID: sessionID,
		AgentName: req.AgentName,
		Text:      req.Text,
	})
	if err != nil {
		return err
	}

	startEventStream(c)
	for d := range deltas {
		if err := writeEvent(c, gateway.NewDeltaEvent(d)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) cancelTask(c echo.Context) error {
	if err := s.backend.Cancel(c.Request().Context(), param(c, "id"), param(c, "task")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) artifactStore() (chat.ArtifactStore, error) {
	if s.artifacts == nil {
		return nil, echo.NewHTTPError(http.StatusNotImplemented, "no artifact store configured")
	}
	return s.artifacts, nil
}

func (s *Server) listArtifacts(c echo.Context) error {
	store, err := s.artifactStore()
	if err != nil {
		return err
	}
	list, err := store.List(c.Request().Context(), param(c, "id"))
	if err != nil {
		return err
	}
	if list == nil {
		list = []chat.ArtifactInfo{}
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) uploadArtifact(c echo.Context) error {
	store, err := s.artifactStore()
	if err != nil {
		return err
	}

	content, err := io.ReadAll(io.LimitReader(c.Request().Body, chat.MaxUploadSize+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("reading body: %v", err))
	}
	if len(content) > chat.MaxUploadSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}

	info, err := store.Upload(c.Request().Context(), param(c, "id"), param(c, "file"), c.Request().Header.Get("Content-Type"), content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) deleteArtifact(c echo.Context) error {
	store, err := s.artifactStore()
	if err != nil {
		return err
	}
	if err := store.Delete(c.Request().Context(), param(c, "id"), param(c, "file")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// batchDeleteArtifacts deletes each file on its own so that every failure is
// reported against its filename.
func (s *Server) batchDeleteArtifacts(c echo.Context) error {
	store, err := s.artifactStore()
	if err != nil {
		return err
	}

	var req gateway.BatchDeleteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}

	ctx := c.Request().Context()
	sessionID := param(c, "id")

	var mu sync.Mutex
	failures := map[string]string{}
	deleted, _ := artifacts.DeleteEach(ctx, req.Filenames, artifacts.DefaultDeleteConcurrency, func(ctx context.Context, name string) error {
		err := store.Delete(ctx, sessionID, name)
		if err != nil {
			mu.Lock()
			failures[name] = err.Error()
			mu.Unlock()
		}
		return err
	})
	if deleted == nil {
		deleted = []string{}
	}

	return c.JSON(http.StatusOK, gateway.BatchDeleteResponse{Deleted: deleted, Errors: failures})
}

func (s *Server) artifactVersions(c echo.Context) error {
	store, err := s.artifactStore()
	if err != nil {
		return err
	}
	versions, err := store.Versions(c.Request().Context(), param(c, "id"), param(c, "file"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, versions)
}

func (s *Server) fetchArtifact(c echo.Context) error {
	store, err := s.artifactStore()
	if err != nil {
		return err
	}
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid version")
	}

	filename := param(c, "file")
	data, err := store.Fetch(c.Request().Context(), param(c, "id"), filename, version)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, chat.DetectMimeType(filename), data)
}

func (s *Server) taskEvents(c echo.Context) error {
	ctx := c.Request().Context()
	events, errs, err := s.tasks.Subscribe(ctx)
	if err != nil {
		return err
	}

	startEventStream(c)
	for ev := range events {
		if err := writeEvent(c, ev); err != nil {
			return err
		}
	}

	select {
	case err := <-errs:
		slog.Debug("Task event subscription ended", "error", err)
	default:
	}
	return nil
}

func (s *Server) taskEventsWS(c echo.Context) error {
	conn, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// The client only sends control frames; reading surfaces its close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	events, errs, err := s.tasks.Subscribe(ctx)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()))
		return nil
	}

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				reason := ""
				select {
				case err := <-errs:
					reason = err.Error()
				default:
				}
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, reason), time.Now().Add(wsWriteWait))
				return nil
			}
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return nil
			}
			if err := conn.WriteJSON(ev); err != nil {
				return nil
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return nil
			}
		}
	}
}

func startEventStream(c echo.Context) {
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()
}

func writeEvent(c echo.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", data); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}
