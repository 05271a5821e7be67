package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentmesh/meshchat/pkg/tui/stories"
)

func newStoriesCmd() *cobra.Command {
	var width, height int

	cmd := &cobra.Command{
		Use:   "stories [name]",
		Short: "Render the chat window in sample states",
		Long: `Without a name, list the available stories. With one, print the chat
window as it looks in that state.`,
		GroupID:     "advanced",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{noConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprint(out, stories.Index())
				return nil
			}

			s, ok := stories.Find(args[0])
			if !ok {
				return fmt.Errorf("unknown story %q, run `meshchat stories` to list them", args[0])
			}
			fmt.Fprintln(out, stories.Render(s, width, height))
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 120, "Screen width")
	cmd.Flags().IntVar(&height, "height", 36, "Screen height")

	return cmd
}
