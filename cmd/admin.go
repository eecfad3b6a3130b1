package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cancoktug/ginovainno-replit-sub001/config"
	"github.com/cancoktug/ginovainno-replit-sub001/controllers"
	"github.com/cancoktug/ginovainno-replit-sub001/models"
)

var (
	adminUsername string
	adminPassword string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin panel accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account",
	Long: `Create an admin account for the panel.

Examples:
  ginova admin create --username editor --password 'long enough secret'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminUsername == "" || adminPassword == "" {
			return errors.New("--username and --password are required")
		}
		db, err := config.OpenDatabase(appConfig)
		if err != nil {
			return err
		}
		defer closeDB(db)

		if err := config.Migrate(db, &models.AdminUser{}); err != nil {
			return err
		}
		user, err := controllers.CreateAdmin(db, adminUsername, adminPassword)
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "admin %q created (id %d)\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().StringVarP(&adminUsername, "username", "u", "", "login name")
	adminCreateCmd.Flags().StringVarP(&adminPassword, "password", "p", "", "password, at least 10 characters")
	adminCmd.AddCommand(adminCreateCmd)
}
