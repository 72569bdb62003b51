package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	verbose bool
}

func newRootCmd(app *AppContext) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "tableflow",
		Short:         "TableFlow enhances HTML tables with editing, sorting and row actions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(newRenderCmd(app, flags))
	cmd.AddCommand(newApplyCmd(app, flags))
	cmd.AddCommand(newViewCmd(app, flags))
	cmd.AddCommand(newPluginsCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
