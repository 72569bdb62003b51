package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/tableflow/internal/tui"
)

var errNotInteractive = errors.New("view needs an interactive terminal; use render --format text instead")

type viewOptions struct {
	sessionOptions
	OutPath string
}

var runProgram = func(m tea.Model) (tea.Model, error) {
	return tea.NewProgram(m, tea.WithAltScreen()).Run()
}

func newViewCmd(app *AppContext, root *rootFlags) *cobra.Command {
	opts := viewOptions{}

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Browse and edit the table interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Verbose = root.verbose
			return runView(cmd.Context(), app, opts, cmd.ErrOrStderr())
		},
	}

	addSessionFlags(cmd, &opts.sessionOptions)
	cmd.Flags().StringVarP(&opts.OutPath, "out", "o", "", "Write the edited document to a file on exit")

	return cmd
}

func runView(ctx context.Context, app *AppContext, opts viewOptions, stderr io.Writer) error {
	if !stdoutIsTerminal() {
		return errNotInteractive
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Logs would corrupt the alternate screen.
	s, err := openSession(ctx, app, opts.sessionOptions, io.Discard)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := runProgram(tui.NewModel(ctx, s.host, "")); err != nil {
		return fmt.Errorf("failed to run viewer: %w", err)
	}

	if opts.OutPath == "" {
		return nil
	}
	if err := s.writeDocument(stderr, opts.OutPath); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "wrote %s\n", opts.OutPath)
	return nil
}
