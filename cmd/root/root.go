package root

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentmesh/meshchat/pkg/cli"
	"github.com/agentmesh/meshchat/pkg/config"
	"github.com/agentmesh/meshchat/pkg/logging"
	"github.com/agentmesh/meshchat/pkg/paths"
	"github.com/agentmesh/meshchat/pkg/telemetry"
	"github.com/agentmesh/meshchat/pkg/version"
)

// Commands annotated with noConfig run without loading the config file.
const noConfig = "no-config"

type rootFlags struct {
	enableOtel  bool
	debugMode   bool
	configPath  string
	envFiles    []string
	logFilePath string

	cfg      *config.Config
	logFile  io.Closer
	shutdown func(context.Context) error
}

func NewRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "meshchat",
		Short: "meshchat - chat with an agent mesh",
		Long:  "meshchat is a terminal chat client for multi-agent orchestration gateways",
		Example: `  meshchat chat
  meshchat send "Summarize the plan"
  meshchat tasks watch`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return flags.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			flags.teardown(cmd.Context())
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.debugMode, "debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flags.enableOtel, "otel", "o", false, "Enable OpenTelemetry tracing")
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", paths.ConfigFile(), "Path to the config file")
	cmd.PersistentFlags().StringSliceVar(&flags.envFiles, "env-file", []string{".env"}, "Load environment variables from these files")
	cmd.PersistentFlags().StringVar(&flags.logFilePath, "log-file", "", "Path to the log file (default: the config's log.path)")

	cmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "advanced", Title: "Advanced Commands:"})

	cmd.AddCommand(newChatCmd(&flags))
	cmd.AddCommand(newSendCmd(&flags))
	cmd.AddCommand(newAgentsCmd(&flags))
	cmd.AddCommand(newSessionsCmd(&flags))
	cmd.AddCommand(newTasksCmd(&flags))
	cmd.AddCommand(newArtifactsCmd(&flags))
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStoriesCmd())
	cmd.AddCommand(newConfigCmd(&flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func Execute(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args ...string) error {
	rootCmd := NewRootCmd()
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return processErr(ctx, err, stderr, rootCmd)
	}
	return nil
}

func (f *rootFlags) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if !skipsConfig(cmd) {
		loaded, err := config.Load(f.configPath, f.envFiles...)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	f.cfg = cfg

	logCfg := cfg.Log
	if path := strings.TrimSpace(f.logFilePath); path != "" {
		logCfg.Path = path
	}
	logFile, err := logging.Setup(logCfg, f.debugMode)
	if err != nil {
		return err
	}
	f.logFile = logFile

	if f.enableOtel || cfg.Telemetry.Endpoint != "" {
		f.enableOtel = true
		shutdown, err := telemetry.Init(cmd.Context(), cfg.Telemetry, version.Version)
		if err != nil {
			slog.Warn("Failed to initialize OpenTelemetry SDK", "error", err)
			f.enableOtel = false
		} else {
			f.shutdown = shutdown
			slog.Debug("OpenTelemetry SDK initialized successfully")
		}
	}

	return nil
}

func (f *rootFlags) teardown(ctx context.Context) {
	if f.shutdown != nil {
		if err := f.shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.Error("Failed to shut down OpenTelemetry", "error", err)
		}
	}
	if f.logFile != nil {
		if err := f.logFile.Close(); err != nil {
			slog.Error("Failed to close log file", "error", err)
		}
	}
}

func skipsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[noConfig] == "true" {
			return true
		}
	}
	return false
}

func processErr(ctx context.Context, err error, stderr io.Writer, rootCmd *cobra.Command) error {
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, cli.ErrCanceled):
		fmt.Fprintln(stderr, "Canceled.")
	case errors.Is(err, config.ErrExists):
		fmt.Fprintln(stderr, err)
		fmt.Fprintln(stderr, "Use --force to overwrite it.")
	default:
		if _, ok := errors.AsType[RuntimeError](err); ok {
			// Already printed by the command.
			break
		}
		fmt.Fprintln(stderr, err)
		fmt.Fprintln(stderr)
		if strings.HasPrefix(err.Error(), "unknown command ") || strings.HasPrefix(err.Error(), "accepts ") {
			_ = rootCmd.Usage()
		}
	}

	return err
}

// RuntimeError wraps errors the command has already reported.
type RuntimeError struct {
	Err error
}

func (e RuntimeError) Error() string {
	return e.Err.Error()
}

func (e RuntimeError) Unwrap() error {
	return e.Err
}
