package main

import (
	"fmt"

	"github.com/amirphl/qrtrack/database"
	"github.com/spf13/cobra"
)

func newMigrateCmd(open appOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		RunE: withApp(open, func(cmd *cobra.Command, app *cliApp) error {
			applied, err := database.Migrate(cmd.Context(), app.DB, app.Config.Database)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s, %d migrations applied)\n", app.Config.Database.Driver, applied)
			return nil
		}),
	}
}
