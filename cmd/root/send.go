package root

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentmesh/meshchat/pkg/cli"
)

func newSendCmd(root *rootFlags) *cobra.Command {
	var sf sessionFlags

	cmd := &cobra.Command{
		Use:   "send <message>|-",
		Short: "Send one message and print the reply",
		Long: `Send a message to the selected agent and stream the reply to stdout.
Use - to read the message from stdin. Without --session a new session is
created. Interrupting the command cancels the running task.`,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			text := args[0]
			if text == "-" {
				buf, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read from stdin: %w", err)
				}
				text = string(buf)
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("message is empty")
			}

			a, err := root.newApp(sf)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cli.NewPrinter(cmd.OutOrStdout())
			if err := a.Chat.LoadAgents(ctx); err != nil {
				return err
			}
			if err := openSession(ctx, a, sf.sessionID); err != nil {
				return err
			}
			if name := a.Chat.Snapshot().SelectedAgentName; name != "" {
				out.PrintAgentName(name)
			}

			if err := cli.Send(ctx, a.Chat, out, text); err != nil {
				if errors.Is(err, cli.ErrTurnFailed) {
					return RuntimeError{Err: err}
				}
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sf.sessionID, "session", "s", "", "Continue this session")
	cmd.Flags().StringVarP(&sf.agent, "agent", "a", "", "Send to this agent")

	return cmd
}
