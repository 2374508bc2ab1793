package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, database, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Migrate(); err != nil {
			return err
		}
		v, dirty, err := database.Version()
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
		fmt.Printf("%s: schema version %d", cfg.Database.Path, v)
		if dirty {
			fmt.Print(" (dirty)")
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
