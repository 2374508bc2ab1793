package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/canteen/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize canteen configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure the backend and writes a .canteen.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
