package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/dmizin/computer-inventory/internal/api"
	"github.com/dmizin/computer-inventory/internal/app"
	"github.com/dmizin/computer-inventory/internal/audit"
	"github.com/dmizin/computer-inventory/internal/metrics"
	"github.com/dmizin/computer-inventory/internal/reconcile"
	"github.com/dmizin/computer-inventory/internal/secrets"
	"github.com/dmizin/computer-inventory/internal/store"
	"github.com/dmizin/computer-inventory/internal/vault"
	"github.com/dmizin/computer-inventory/internal/version"
)

var cmdServe = &cobra.Command{
	Use:   "serve",
	Short: "Run the inventory API server",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd.Context())
	},
}

func serve(ctx context.Context) {
	inventory, err := app.New(cfgFile, logLevel())
	if err != nil {
		log.Fatal(err)
	}

	// serve metrics endpoint
	metrics.ListenAndServe()
	version.ExportBuildInfoMetric()

	ctx, cancelFunc := context.WithCancel(ctx)

	// routine listens for termination signal and cancels the context
	go func() {
		<-inventory.TermCh
		inventory.Logger.Info("got TERM signal, exiting...")
		cancelFunc()
	}()

	repository, err := store.NewPostgresStore(inventory.Config.Database, inventory.Logger)
	if err != nil {
		inventory.Logger.Fatal(err)
	}

	defer repository.Close()

	var vaultClient secrets.VaultAPI

	if inventory.Config.Vault.Enabled {
		vaultClient, err = vault.NewClient(inventory.Config.Vault, inventory.Logger)
		if err != nil {
			inventory.Logger.Fatal(err)
		}
	}

	server := api.NewServer(
		inventory.Config,
		repository,
		reconcile.New(repository, inventory.Logger),
		secrets.NewSyncer(inventory.Config.Vault, vaultClient, inventory.Logger),
		audit.NewRecorder(repository, inventory.Logger),
		inventory.Logger,
	)

	if err := server.Run(ctx); err != nil {
		inventory.Logger.Fatal(err)
	}
}

func init() {
	rootCmd.AddCommand(cmdServe)
}
