package root

import (
	"github.com/spf13/cobra"

	"github.com/agentmesh/meshchat/pkg/cli"
)

func newAgentsCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "agents",
		Short:   "List the agents of the mesh",
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.newApp(sessionFlags{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Chat.LoadAgents(cmd.Context()); err != nil {
				return err
			}
			st := a.Chat.Snapshot()
			cli.NewPrinter(cmd.OutOrStdout()).PrintAgents(st.Agents, st.SelectedAgentName)
			return nil
		},
	}
}
