package root

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/agentmesh/meshchat/pkg/app"
	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/cli"
)

type artifactsFlags struct {
	root      *rootFlags
	sessionID string
}

func newArtifactsCmd(root *rootFlags) *cobra.Command {
	f := &artifactsFlags{root: root}

	cmd := &cobra.Command{
		Use:     "artifacts",
		Aliases: []string{"files"},
		Short:   "Manage the files attached to a session",
		GroupID: "advanced",
	}
	cmd.PersistentFlags().StringVarP(&f.sessionID, "session", "s", "", "Session owning the files")
	_ = cmd.MarkPersistentFlagRequired("session")

	cmd.AddCommand(f.newListCmd())
	cmd.AddCommand(f.newGetCmd())
	cmd.AddCommand(f.newPutCmd())
	cmd.AddCommand(f.newRemoveCmd())

	return cmd
}

// open assembles the app on the session and loads its listing.
func (f *artifactsFlags) open(ctx context.Context) (*app.App, error) {
	a, err := f.root.newApp(sessionFlags{sessionID: f.sessionID})
	if err != nil {
		return nil, err
	}
	if a.Artifacts == nil {
		a.Close()
		return nil, errors.New("no artifact store configured (artifacts.backend is none)")
	}
	if err := a.Chat.RefreshArtifacts(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (f *artifactsFlags) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List the files, most recently modified first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := f.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			cli.NewPrinter(cmd.OutOrStdout()).PrintArtifacts(a.Chat.Snapshot().Artifacts)
			return nil
		},
	}
}

func (f *artifactsFlags) newGetCmd() *cobra.Command {
	var (
		version int
		output  string
	)

	cmd := &cobra.Command{
		Use:   "get <file>",
		Short: "Print a file, or save it with --output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := f.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var p *chat.Preview
			if version > 0 {
				p, err = a.Chat.NavigateArtifactVersion(ctx, args[0], version)
			} else {
				p, err = a.Chat.OpenArtifactForPreview(ctx, args[0])
			}
			if err != nil {
				return err
			}

			if output != "" {
				return atomic.WriteFile(output, bytes.NewReader(p.Content))
			}
			cli.NewPrinter(cmd.OutOrStdout()).PrintArtifactContent(p.Artifact.MimeType, p.Content)
			return nil
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "Version to fetch (default: the latest)")
	cmd.Flags().StringVarP(&output, "output", "O", "", "Write the content to this file")

	return cmd
}

func (f *artifactsFlags) newPutCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "put <path>",
		Short: "Upload a local file as a new version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(args[0])
			}

			a, err := f.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := a.Chat.UploadArtifact(ctx, name, chat.DetectMimeType(name), content)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%d\n", info.Filename, info.Version)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name of the file in the session (default: the base name of path)")

	return cmd
}

func (f *artifactsFlags) newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <file>...",
		Short: "Delete files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := f.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 1 {
				if err := a.Chat.OpenDeleteModal(args[0]); err != nil {
					return err
				}
				if err := a.Chat.ConfirmDelete(ctx); err != nil {
					return err
				}
			} else {
				a.Chat.SetArtifactEditMode(true)
				a.Chat.SetSelectedArtifactFilenames(args)
				if !a.Chat.DeleteSelectedArtifacts() {
					return nil
				}
				if err := a.Chat.ConfirmBatchDelete(ctx); err != nil {
					return err
				}
			}

			out := cli.NewPrinter(cmd.OutOrStdout())
			for _, n := range a.Chat.Snapshot().Notifications {
				out.PrintNotification(n)
			}
			return nil
		},
	}
}
