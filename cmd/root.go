package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cancoktug/ginovainno-replit-sub001/config"
)

var (
	configPath string
	appConfig  config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "ginova",
	Short: "Ginova innovation center website backend",
	Long: `Ginova serves the public site API, the admin panel API and the media pipeline.

Configuration is read from config/config.yaml (or --config) and then overridden
by environment variables such as JWT_SECRET or STORAGE_DRIVER. A .env file in the
working directory is loaded first when present.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(adminCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := config.Validate(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	appConfig = c
	return nil
}
