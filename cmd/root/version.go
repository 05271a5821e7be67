package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentmesh/meshchat/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version information",
		Long:        `Display the version and commit hash`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noConfig: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "meshchat version %s\n", version.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", version.Commit)
		},
	}
}
