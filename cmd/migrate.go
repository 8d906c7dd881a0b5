package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/dmizin/computer-inventory/internal/app"
	"github.com/dmizin/computer-inventory/internal/store"
)

var cmdMigrate = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the inventory database schema",
	Run: func(cmd *cobra.Command, _ []string) {
		inventory, err := app.New(cfgFile, logLevel())
		if err != nil {
			log.Fatal(err)
		}

		repository, err := store.NewPostgresStore(inventory.Config.Database, inventory.Logger)
		if err != nil {
			inventory.Logger.Fatal(err)
		}

		defer repository.Close()

		if err := repository.Migrate(cmd.Context()); err != nil {
			inventory.Logger.Fatal(err)
		}

		inventory.Logger.Info("database schema applied")
	},
}

func init() {
	rootCmd.AddCommand(cmdMigrate)
}
