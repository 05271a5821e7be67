// Package app assembles the chat and task monitor stores from a
// configuration: the chat backend, the agent directory, the artifact store
// and the task event stream.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"time"

	"github.com/agentmesh/meshchat/pkg/artifacts"
	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/config"
	"github.com/agentmesh/meshchat/pkg/httpclient"
	"github.com/agentmesh/meshchat/pkg/monitor"
	"github.com/agentmesh/meshchat/pkg/remote/a2a"
	"github.com/agentmesh/meshchat/pkg/remote/gateway"
	"github.com/agentmesh/meshchat/pkg/telemetry"
)

// App holds the wired stores. Monitor and Artifacts are nil when disabled.
type App struct {
	Config    *config.Config
	Backend   chat.Backend
	Directory chat.AgentDirectory
	Artifacts chat.ArtifactStore
	Chat      *chat.Store
	Monitor   *monitor.Monitor

	// Mesh is set with the a2a backend.
	Mesh *a2a.Mesh
}

type options struct {
	now       func() time.Time
	sessionID string
	tracing   bool
}

type Option func(*options)

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithSessionID resumes an existing session instead of starting a new one.
func WithSessionID(id string) Option {
	return func(o *options) {
		o.sessionID = id
	}
}

// WithTracing wraps the backend and the artifact store with OpenTelemetry
// spans.
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracing = enabled
	}
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg}

	var gw *gateway.Client
	if cfg.Gateway.URL != "" {
		var err error
		gw, err = newGatewayClient(cfg.Gateway.URL, cfg.Gateway)
		if err != nil {
			return nil, err
		}
	}

	switch cfg.Backend {
	case config.BackendGateway:
		if gw == nil {
			return nil, errors.New("gateway backend needs gateway.url")
		}
		a.Backend = gw
		a.Directory = gw.Agents()
	case config.BackendA2A:
		a.Mesh = a2a.New(cfg.Agents.CardURLs, a2a.WithHeaders(headers(cfg.Gateway)), a2a.WithClock(o.now))
		a.Backend = a.Mesh
		a.Directory = a.Mesh
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	store, err := newArtifactStore(cfg.Artifacts, gw, o.now)
	if err != nil {
		return nil, err
	}
	a.Artifacts = store

	if o.tracing {
		a.Backend = telemetry.TraceBackend(a.Backend)
		if a.Artifacts != nil {
			a.Artifacts = telemetry.TraceArtifacts(a.Artifacts)
		}
	}

	chatOpts := []chat.Option{
		chat.WithAgentDirectory(a.Directory),
		chat.WithClock(o.now),
	}
	if a.Artifacts != nil {
		chatOpts = append(chatOpts, chat.WithArtifactStore(a.Artifacts))
	}
	if cfg.Agents.Default != "" {
		chatOpts = append(chatOpts, chat.WithDefaultAgent(cfg.Agents.Default))
	}
	if o.sessionID != "" {
		chatOpts = append(chatOpts, chat.WithSessionID(o.sessionID))
	}
	a.Chat = chat.NewStore(a.Backend, chatOpts...)

	stream, err := newTaskStream(cfg.Tasks, cfg.Gateway, gw)
	if err != nil {
		return nil, err
	}
	if stream != nil {
		retry := cfg.Tasks.Retry
		a.Monitor = monitor.New(stream,
			monitor.WithClock(o.now),
			monitor.WithRetryPolicy(monitor.NewExponentialPolicy(retry.Initial, retry.Max, retry.MaxAttempts)),
		)
	}

	slog.Debug("Application assembled",
		"backend", cfg.Backend,
		"artifacts", cfg.Artifacts.Backend,
		"tasks", cfg.Tasks.Transport,
		"tracing", o.tracing,
	)
	return a, nil
}

// Close stops the task stream.
func (a *App) Close() {
	if a.Monitor != nil {
		a.Monitor.Disconnect()
	}
}

func headers(gc config.GatewayConfig) map[string]string {
	h := make(map[string]string, len(gc.Headers)+1)
	maps.Copy(h, gc.Headers)
	if gc.Token != "" {
		h["Authorization"] = "Bearer " + gc.Token
	}
	return h
}

func newGatewayClient(baseURL string, gc config.GatewayConfig) (*gateway.Client, error) {
	plain := httpclient.NewHTTPClient(
		httpclient.WithHeaders(gc.Headers),
		httpclient.WithBearerToken(gc.Token),
		httpclient.WithTimeout(gc.Timeout),
	)
	stream := httpclient.NewHTTPClient(
		httpclient.WithHeaders(gc.Headers),
		httpclient.WithBearerToken(gc.Token),
	)
	client, err := gateway.NewClient(baseURL, gateway.WithHTTPClient(plain), gateway.WithStreamClient(stream))
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}
	return client, nil
}

func newArtifactStore(cfg config.ArtifactsConfig, gw *gateway.Client, now func() time.Time) (chat.ArtifactStore, error) {
	var store chat.ArtifactStore
	switch cfg.Backend {
	case config.ArtifactsNone, "":
		return nil, nil
	case config.ArtifactsMemory:
		// Already in memory; no cache in front of it.
		return artifacts.NewMemoryStoreWithClock(now), nil
	case config.ArtifactsGateway:
		if gw == nil {
			return nil, errors.New("gateway artifacts need gateway.url")
		}
		store = gw.Artifacts()
	case config.ArtifactsS3:
		s3, err := artifacts.NewS3Store(cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("s3 artifacts: %w", err)
		}
		store = s3
	default:
		return nil, fmt.Errorf("unknown artifact backend %q", cfg.Backend)
	}

	if cfg.Cache == nil {
		return store, nil
	}
	cached, err := artifacts.NewCachedStore(store, *cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("artifact cache: %w", err)
	}
	return cached, nil
}

// newTaskStream picks the task event source. For SSE, tasks.url is the base
// URL of the server publishing the events; for WebSocket it is the full
// socket URL.
func newTaskStream(tc config.TasksConfig, gc config.GatewayConfig, gw *gateway.Client) (monitor.Stream, error) {
	switch tc.Transport {
	case config.TransportNone, "":
		return nil, nil
	case config.TransportSSE:
		if tc.URL == "" {
			if gw == nil {
				return nil, errors.New("sse task stream needs tasks.url or gateway.url")
			}
			return gw.TaskEvents(), nil
		}
		client, err := newGatewayClient(tc.URL, gc)
		if err != nil {
			return nil, err
		}
		return client.TaskEvents(), nil
	case config.TransportWebSocket:
		header := http.Header{}
		for k, v := range headers(gc) {
			header.Set(k, v)
		}
		if tc.URL != "" {
			return gateway.NewWSStream(tc.URL, header), nil
		}
		if gw == nil {
			return nil, errors.New("websocket task stream needs tasks.url or gateway.url")
		}
		return gw.TaskEventsWS(header), nil
	default:
		return nil, fmt.Errorf("unknown task transport %q", tc.Transport)
	}
}
