package root

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentmesh/meshchat/pkg/server"
)

type serveFlags struct {
	listenAddr string
	stepDelay  time.Duration
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a demo gateway",
		Long: `Start a gateway in front of a scripted agent mesh. It speaks the same
HTTP API as a real gateway and is seeded with sample sessions, agents,
files and a finished task.`,
		GroupID:     "advanced",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noConfig: "true"},
		RunE:        flags.run,
	}

	cmd.Flags().StringVarP(&flags.listenAddr, "listen", "l", "127.0.0.1:8080", "Address to listen on (tcp address, unix://<path> or fd://<n>)")
	cmd.Flags().DurationVar(&flags.stepDelay, "step-delay", 300*time.Millisecond, "Pause between the scripted workflow steps")

	return cmd
}

func (f *serveFlags) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	ln, err := server.Listen(ctx, f.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.listenAddr, err)
	}
	defer ln.Close()

	slog.Info("Demo gateway listening", "addr", ln.Addr().String())
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", ln.Addr())

	return server.NewDemo(f.stepDelay).Serve(ctx, ln)
}
