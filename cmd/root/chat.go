package root

import (
	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/agentmesh/meshchat/pkg/tui"
)

func newChatCmd(root *rootFlags) *cobra.Command {
	var (
		sf           sessionFlags
		showSessions bool
	)

	cmd := &cobra.Command{
		Use:     "chat",
		Short:   "Open the chat window",
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := root.newApp(sf)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := openSession(ctx, a, sf.sessionID); err != nil {
				return err
			}

			var opts []tui.Option
			if showSessions {
				opts = append(opts, tui.WithSessionsOpen())
			}
			m := tui.New(ctx, a.Chat, a.Monitor, opts...)

			p := tea.NewProgram(m,
				tea.WithContext(ctx),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&sf.sessionID, "session", "s", "", "Resume this session")
	cmd.Flags().StringVarP(&sf.agent, "agent", "a", "", "Select this agent")
	cmd.Flags().BoolVar(&showSessions, "sessions", false, "Start with the sessions panel open")

	return cmd
}
