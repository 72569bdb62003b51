package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/tableflow/internal/events"
	actionsplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/actions"
	choiceplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/choice"
	colorplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/color"
	dateplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/date"
	editplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/edit"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
	"github.com/alexisbeaulieu97/tableflow/internal/tableflow"
	"github.com/alexisbeaulieu97/tableflow/pkg/diff"
)

type applyOptions struct {
	sessionOptions
	Sets    []string
	Save    bool
	OutPath string
	Diff    bool
	Context int
}

// assignment is one --set row:column=value.
type assignment struct {
	Row    string
	Column string
	Value  string
}

func newApplyCmd(app *AppContext, root *rootFlags) *cobra.Command {
	opts := applyOptions{}

	cmd := &cobra.Command{
		Use:     "apply",
		Short:   "Edit cells through their plugins and print the resulting document",
		Example: `  tableflow apply --html orders.html -c tableflow.yaml --set r1:qty=4 --set r2:status=shipped --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Verbose = root.verbose
			return runApply(cmd.Context(), app, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	addSessionFlags(cmd, &opts.sessionOptions)
	cmd.Flags().StringArrayVar(&opts.Sets, "set", nil, "Cell assignment as row:column=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "Save every edited row after applying")
	cmd.Flags().StringVarP(&opts.OutPath, "out", "o", "", "Write the document to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.Diff, "diff", false, "Print a diff of the document instead of the document")
	cmd.Flags().IntVar(&opts.Context, "context", 3, "Unchanged lines shown around each change with --diff")
	cmd.MarkFlagRequired("set") //nolint:errcheck

	return cmd
}

func runApply(ctx context.Context, app *AppContext, opts applyOptions, stdout, stderr io.Writer) error {
	assignments := make([]assignment, 0, len(opts.Sets))
	for _, raw := range opts.Sets {
		a, err := parseAssignment(raw)
		if err != nil {
			return err
		}
		assignments = append(assignments, a)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, app, opts.sessionOptions, stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	before := s.doc.String()

	var touched []*table.Row
	seen := make(map[string]bool)
	for _, a := range assignments {
		cell := s.host.Table().Cell(a.Row, a.Column)
		if cell == nil {
			return fmt.Errorf("cell %s:%s not found", a.Row, a.Column)
		}
		if err := setCell(ctx, s.host, cell, a.Value); err != nil {
			return fmt.Errorf("set %s:%s: %w", a.Row, a.Column, err)
		}
		if row := cell.Row(); !seen[row.ID()] {
			seen[row.ID()] = true
			touched = append(touched, row)
		}
	}
	s.host.Drain()

	if opts.Save {
		for _, row := range touched {
			if !row.Attached() {
				continue
			}
			if err := saveRow(ctx, s.host, row); err != nil {
				return err
			}
		}
		s.host.Drain()
	}

	if opts.Diff {
		_, err := io.WriteString(stdout, diff.Unified([]byte(before), []byte(s.doc.String()), opts.HTMLPath, opts.HTMLPath+" (edited)", opts.Context))
		return err
	}
	return s.writeDocument(stdout, opts.OutPath)
}

func parseAssignment(raw string) (assignment, error) {
	target, value, ok := strings.Cut(raw, "=")
	if !ok {
		return assignment{}, fmt.Errorf("invalid assignment %q: want row:column=value", raw)
	}
	row, column, ok := strings.Cut(target, ":")
	row, column = strings.TrimSpace(row), strings.TrimSpace(column)
	if !ok || row == "" || column == "" {
		return assignment{}, fmt.Errorf("invalid assignment %q: want row:column=value", raw)
	}
	return assignment{Row: row, Column: column, Value: value}, nil
}

// setCell writes value through whichever plugin owns the cell.
func setCell(ctx context.Context, host *tableflow.TableFlow, cell *table.Cell, value string) error {
	owner := host.Store().Owner(cell.Key())
	switch p := host.GetPlugin(owner).(type) {
	case *editplugin.Plugin:
		session, err := p.StartEdit(ctx, cell)
		if err != nil {
			return err
		}
		session.Type(value)
		return session.Commit(ctx)
	case *choiceplugin.Plugin:
		var values []string
		for _, v := range strings.Split(value, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		return p.Select(ctx, cell, values...)
	case *colorplugin.Plugin:
		return p.SetColor(ctx, cell, value)
	case *dateplugin.Plugin:
		return p.SetDate(ctx, cell, value)
	default:
		if owner == "" {
			return fmt.Errorf("cell is not editable")
		}
		return fmt.Errorf("cell is owned by %s, which does not accept values", owner)
	}
}

func saveRow(ctx context.Context, host *tableflow.TableFlow, row *table.Row) error {
	if actions, ok := host.GetPlugin(actionsplugin.Name).(*actionsplugin.Plugin); ok {
		return actions.Execute(ctx, row, actionsplugin.ActionSave)
	}
	return host.MarkRowAsSaved(ctx, row, map[string]any{"source": events.SourceManual})
}
