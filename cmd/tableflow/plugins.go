package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPluginsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the plugins that can be named in a configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range app.Registry.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
