package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	selectionplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/selection"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
	"github.com/alexisbeaulieu97/tableflow/internal/tui/components"
)

// Output formats accepted by render.
const (
	formatAuto = "auto"
	formatHTML = "html"
	formatText = "text"
)

type renderOptions struct {
	sessionOptions
	Format  string
	OutPath string
}

func newRenderCmd(app *AppContext, root *rootFlags) *cobra.Command {
	opts := renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Load the plugins over a table and print the enhanced document",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Verbose = root.verbose
			return runRender(cmd.Context(), app, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	addSessionFlags(cmd, &opts.sessionOptions)
	cmd.Flags().StringVarP(&opts.Format, "format", "f", formatAuto, "Output format: html, text or auto")
	cmd.Flags().StringVarP(&opts.OutPath, "out", "o", "", "Write the output to a file instead of stdout")

	return cmd
}

func runRender(ctx context.Context, app *AppContext, opts renderOptions, stdout, stderr io.Writer) error {
	format, err := resolveFormat(opts.Format, opts.OutPath)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, app, opts.sessionOptions, stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	if format == formatText {
		_, err := fmt.Fprintln(stdout, textTable(s))
		return err
	}
	return s.writeDocument(stdout, opts.OutPath)
}

func resolveFormat(format, outPath string) (string, error) {
	switch format {
	case formatHTML, formatText:
		return format, nil
	case formatAuto, "":
		if outPath == "" && stdoutIsTerminal() {
			return formatText, nil
		}
		return formatHTML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want html, text or auto)", format)
	}
}

func textTable(s *session) string {
	var selected func(*table.Row) bool
	if sel, ok := s.host.GetPlugin(selectionplugin.Name).(*selectionplugin.Plugin); ok {
		selected = sel.IsSelected
	}
	return components.GridFromTable(s.host.Table(), selected).View(-1, -1)
}
