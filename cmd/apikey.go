package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmizin/computer-inventory/internal/app"
	"github.com/dmizin/computer-inventory/internal/model"
	"github.com/dmizin/computer-inventory/internal/store"
)

var apiKeyName string

var cmdAPIKey = &cobra.Command{
	Use:   "apikey",
	Short: "Manage inventory API keys",
}

var cmdAPIKeyGenerate = &cobra.Command{
	Use:   "generate",
	Short: "Generate an API key and store its hash",
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

		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			inventory.Logger.Fatal(err)
		}

		key := hex.EncodeToString(raw)

		hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
		if err != nil {
			inventory.Logger.Fatal(err)
		}

		record := &model.APIKey{
			ID:      uuid.New(),
			KeyHash: string(hash),
			Name:    apiKeyName,
			Active:  true,
		}

		if err := repository.CreateAPIKey(cmd.Context(), record); err != nil {
			inventory.Logger.Fatal(err)
		}

		// the plaintext key is shown once, only its hash is stored
		fmt.Printf("id: %s\nname: %s\nkey: %s\n", record.ID, record.Name, key)
	},
}

func init() {
	cmdAPIKeyGenerate.PersistentFlags().StringVar(&apiKeyName, "name", "", "Descriptive name for the API key")

	if err := cmdAPIKeyGenerate.MarkPersistentFlagRequired("name"); err != nil {
		log.Fatal(err)
	}

	cmdAPIKey.AddCommand(cmdAPIKeyGenerate)
	rootCmd.AddCommand(cmdAPIKey)
}
