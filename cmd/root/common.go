package root

import (
	"context"

	"github.com/agentmesh/meshchat/pkg/app"
)

// sessionFlags select the session and agent a command talks to.
type sessionFlags struct {
	sessionID string
	agent     string
}

func (f *rootFlags) newApp(sf sessionFlags) (*app.App, error) {
	cfg := *f.cfg
	if sf.agent != "" {
		cfg.Agents.Default = sf.agent
	}

	opts := []app.Option{app.WithTracing(f.enableOtel)}
	if sf.sessionID != "" {
		opts = append(opts, app.WithSessionID(sf.sessionID))
	}
	return app.New(&cfg, opts...)
}

// openSession loads the history of sessionID, or registers a new session with
// the backend when it is empty.
func openSession(ctx context.Context, a *app.App, sessionID string) error {
	if sessionID == "" {
		a.Chat.NewSession(ctx)
		return nil
	}
	return a.Chat.SwitchSession(ctx, sessionID)
}
