package root

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/agentmesh/meshchat/pkg/cli"
)

func newSessionsCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"ls"},
		Short:   "List the chat sessions",
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.newApp(sessionFlags{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Chat.RefreshSessions(cmd.Context()); err != nil {
				return err
			}
			cli.NewPrinter(cmd.OutOrStdout()).PrintSessions(a.Chat.Snapshot().Sessions, time.Now())
			return nil
		},
	}
}
