package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cancoktug/ginovainno-replit-sub001/config"
	"github.com/cancoktug/ginovainno-replit-sub001/models"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := config.OpenDatabase(appConfig)
		if err != nil {
			return err
		}
		defer closeDB(db)

		if err := config.Migrate(db, models.All()...); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}
