// Package a2a talks to the agents of an A2A mesh. Mesh implements both the
// chat backend and the agent directory on top of a2a-go clients.
package a2a

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient"
	"github.com/a2aproject/a2a-go/a2aclient/agentcard"
	"github.com/google/uuid"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/httpclient"
)

var (
	ErrNoAgents     = errors.New("no A2A agents configured")
	ErrUnknownAgent = errors.New("unknown agent")
)

// Client is the part of *a2aclient.Client the mesh uses.
type Client interface {
	SendStreamingMessage(ctx context.Context, params *a2a.MessageSendParams) iter.Seq2[a2a.Event, error]
	CancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error)
}

var _ Client = (*a2aclient.Client)(nil)

type remoteAgent struct {
	card   *a2a.AgentCard
	client Client
}

// Mesh reaches a fixed set of agents through their agent cards. Sessions map
// onto A2A context ids; transcripts are kept in memory for the lifetime of
// the process.
type Mesh struct {
	urls    []string
	headers map[string]string
	now     func() time.Time

	startMu sync.Mutex
	started bool

	mu       sync.RWMutex
	agents   map[string]*remoteAgent
	order    []string
	sessions *sessions
	tasks    map[string]string
}

var (
	_ chat.Backend        = (*Mesh)(nil)
	_ chat.AgentDirectory = (*Mesh)(nil)
)

type Opt func(*Mesh)

// WithHeaders adds headers to every request sent to the agents.
func WithHeaders(headers map[string]string) Opt {
	return func(m *Mesh) {
		m.headers = headers
	}
}

// WithAgent registers an already connected agent.
func WithAgent(card *a2a.AgentCard, client Client) Opt {
	return func(m *Mesh) {
		m.add(card, client)
	}
}

func WithClock(now func() time.Time) Opt {
	return func(m *Mesh) {
		m.now = now
	}
}

// New creates a mesh for the agent card URLs. Cards are resolved lazily on
// first use, or eagerly with Start.
func New(urls []string, opts ...Opt) *Mesh {
	m := &Mesh{
		urls:   urls,
		now:    time.Now,
		agents: map[string]*remoteAgent{},
		tasks:  map[string]string{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.sessions = newSessions(m.now)
	return m
}

// Start resolves every agent card. Agents that fail to resolve are logged
// and skipped; Start fails only when no agent is reachable at all. A failed
// Start is retried on next use.
func (m *Mesh) Start(ctx context.Context) error {
	m.startMu.Lock()
	defer m.startMu.Unlock()

	if m.started {
		return nil
	}

	var errs []error
	for _, url := range m.urls {
		if err := m.connect(ctx, url); err != nil {
			slog.Warn("Failed to connect to A2A agent", "url", url, "error", err)
			errs = append(errs, err)
		}
	}

	m.mu.RLock()
	n := len(m.agents)
	m.mu.RUnlock()
	if n == 0 {
		if len(errs) == 0 {
			return ErrNoAgents
		}
		return errors.Join(errs...)
	}

	m.started = true
	return nil
}

func (m *Mesh) connect(ctx context.Context, url string) error {
	slog.Debug("Resolving A2A agent card", "url", url)

	card, err := agentcard.DefaultResolver.Resolve(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to fetch A2A agent card: %w", err)
	}

	// No request timeout: streamed replies can take minutes.
	httpClient := httpclient.NewHTTPClient(httpclient.WithHeaders(m.headers))

	client, err := a2aclient.NewFromCard(ctx, card, a2aclient.WithJSONRPCTransport(httpClient))
	if err != nil {
		return fmt.Errorf("failed to create A2A client: %w", err)
	}

	m.add(card, client)
	slog.Debug("A2A agent connected", "agent", card.Name, "skills", len(card.Skills))
	return nil
}

func (m *Mesh) add(card *a2a.AgentCard, client Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.agents[card.Name]; !ok {
		m.order = append(m.order, card.Name)
	}
	m.agents[card.Name] = &remoteAgent{card: card, client: client}
}

// agent returns the named agent, or the first one when name is empty.
func (m *Mesh) agent(ctx context.Context, name string) (string, *remoteAgent, error) {
	if len(m.urls) > 0 {
		if err := m.Start(ctx); err != nil {
			return "", nil, err
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.order) == 0 {
		return "", nil, ErrNoAgents
	}
	name = cmp.Or(name, m.order[0])
	a, ok := m.agents[name]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownAgent, name)
	}
	return name, a, nil
}

// List returns the agents in the order their cards were configured.
func (m *Mesh) List(ctx context.Context) ([]chat.Agent, error) {
	if len(m.urls) > 0 {
		if err := m.Start(ctx); err != nil {
			return nil, err
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]chat.Agent, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, agentFromCard(m.agents[name].card))
	}
	return out, nil
}

func agentFromCard(card *a2a.AgentCard) chat.Agent {
	caps := make([]string, 0, len(card.Skills))
	for _, skill := range card.Skills {
		caps = append(caps, cmp.Or(skill.ID, skill.Name))
	}
	return chat.Agent{
		Name:         card.Name,
		DisplayName:  displayName(card.Name),
		Description:  card.Description,
		Capabilities: caps,
	}
}

// displayName turns "research_agent" into "Research Agent".
func displayName(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func (m *Mesh) CreateSession(context.Context) (chat.SessionInfo, error) {
	return m.sessions.create(uuid.NewString()), nil
}

func (m *Mesh) ListSessions(context.Context) ([]chat.SessionInfo, error) {
	return m.sessions.list(), nil
}

func (m *Mesh) LoadSession(_ context.Context, sessionID string) ([]chat.Message, error) {
	return m.sessions.messages(sessionID)
}

// Submit sends the user's text to the agent and streams its reply. The
// session id is used as the A2A context id so the agent sees one
// conversation.
func (m *Mesh) Submit(ctx context.Context, req chat.SubmitRequest) (<-chan chat.Delta, error) {
	name, agent, err := m.agent(ctx, req.AgentName)
	if err != nil {
		return nil, err
	}

	msg := a2a.NewMessage(a2a.MessageRoleUser, &a2a.TextPart{Text: req.Text})
	msg.ContextID = req.SessionID
	m.sessions.appendUser(req.SessionID, req.Text)

	slog.Debug("Sending A2A message", "agent", name, "session_id", req.SessionID)

	out := make(chan chat.Delta)
	go m.stream(ctx, name, agent.client, req.SessionID, &a2a.MessageSendParams{Message: msg}, out)
	return out, nil
}

func (m *Mesh) stream(ctx context.Context, agentName string, client Client, sessionID string, params *a2a.MessageSendParams, out chan<- chat.Delta) {
	defer close(out)

	var (
		conv  converter
		reply strings.Builder
	)
	emit := func(d chat.Delta) bool {
		d.SessionID = sessionID
		d.Sequence = m.sessions.nextSequence(sessionID)
		switch d.Kind {
		case chat.DeltaTaskStarted:
			m.trackTask(d.TaskID, agentName)
		case chat.DeltaText:
			reply.WriteString(d.Text)
		case chat.DeltaTaskFinal:
			if reply.Len() == 0 {
				reply.WriteString(d.Text)
			}
		}
		select {
		case out <- d:
			return true
		case <-ctx.Done():
			return false
		}
	}
	defer func() {
		if reply.Len() > 0 {
			m.sessions.appendAgent(sessionID, reply.String(), conv.taskID)
		}
		// Interrupted turns stay tracked so Cancel can still reach the agent.
		if conv.final {
			m.untrackTask(conv.taskID)
		}
	}()

	for event, err := range client.SendStreamingMessage(ctx, params) {
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("A2A stream failed", "agent", agentName, "error", err)
			emit(chat.Delta{Kind: chat.DeltaTaskFinal, TaskID: conv.taskID, Status: string(a2a.TaskStateFailed), Text: err.Error()})
			return
		}
		for _, d := range conv.deltas(event) {
			if !emit(d) {
				return
			}
		}
		if conv.final {
			return
		}
	}

	if ctx.Err() == nil {
		emit(chat.Delta{Kind: chat.DeltaTaskFinal, TaskID: conv.taskID, Status: string(a2a.TaskStateCompleted)})
	}
}

func (m *Mesh) trackTask(taskID, agentName string) {
	m.mu.Lock()
	m.tasks[taskID] = agentName
	m.mu.Unlock()
}

func (m *Mesh) untrackTask(taskID string) {
	if taskID == "" {
		return
	}
	m.mu.Lock()
	delete(m.tasks, taskID)
	m.mu.Unlock()
}

// Cancel asks the agent running taskID to cancel it.
func (m *Mesh) Cancel(ctx context.Context, sessionID, taskID string) error {
	m.mu.RLock()
	name, ok := m.tasks[taskID]
	var agent *remoteAgent
	if ok {
		agent = m.agents[name]
	}
	m.mu.RUnlock()

	if agent == nil {
		slog.Debug("Nothing to cancel for task", "task_id", taskID, "session_id", sessionID)
		return nil
	}

	slog.Debug("Canceling A2A task", "agent", name, "task_id", taskID)
	if _, err := agent.client.CancelTask(ctx, &a2a.TaskIDParams{ID: a2a.TaskID(taskID)}); err != nil {
		return fmt.Errorf("canceling task %s: %w", taskID, err)
	}
	m.untrackTask(taskID)
	return nil
}

// Agents returns the names of the connected agents.
func (m *Mesh) Agents() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.order)
}
