package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the storage schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the app runs the backend's Init, which migrates.
			return ctx.withApp(cmd.Context(), func(a *app) error {
				dialect := a.db.Dialect()
				if dialect == "" {
					dialect = a.settings.Storage.Type
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Storage ready (%s)\n", dialect)
				return nil
			})
		},
	}
}
