package root

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/agentmesh/meshchat/pkg/cli"
)

func newTasksCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Short:   "Follow the tasks running in the mesh",
		GroupID: "advanced",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Print task status changes and workflow steps as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.newApp(sessionFlags{})
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Monitor == nil {
				return errors.New("no task stream configured (tasks.transport is none)")
			}
			return cli.Watch(cmd.Context(), a.Monitor, cli.NewPrinter(cmd.OutOrStdout()))
		},
	})

	return cmd
}
