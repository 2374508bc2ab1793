package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/canteen/internal/config"
	"github.com/ziadkadry99/canteen/internal/db"
	"github.com/ziadkadry99/canteen/internal/lib/logger"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "canteen",
	Short: "Office canteen ordering and billing backend",
	Long: `canteen runs the REST API behind the office canteen: menus, orders,
per-order transactions, monthly bills, notifications and feedback.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.ConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `canteen init` to create a config file", err)
	}
	if verbose {
		cfg.Env = config.EnvLocal
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// openDatabase loads the config and opens the database it names. Pending
// migrations are applied on open.
func openDatabase() (*config.Config, *db.DB, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	log := logger.New(cfg.Env)
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return cfg, database, log, nil
}
