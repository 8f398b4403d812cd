// Package cli implements the finpulse command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/spf13/cobra"

	"github.com/finpulse/backend/internal/config"
	"github.com/finpulse/backend/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "finpulse",
	Short: "Bank-transaction reconciliation service",
	Long: `finpulse reconciles bank transactions and their splits against
calendar periods, budget periods and recurring-obligation periods, and
keeps each obligation period's payment status up to date.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to TOML config file")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file (if any) and applies env overrides.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// openStore selects the document store: in-memory for local development,
// Firestore otherwise. The returned closer is nil for the memory store.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func() error, error) {
	if cfg.Storage.UseMemoryStore {
		return store.NewMemoryStore(), nil, nil
	}

	projectID := cfg.Storage.ProjectID
	if projectID == "" {
		return nil, nil, fmt.Errorf("storage.project_id (or GOOGLE_CLOUD_PROJECT) is required without use_memory_store")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return store.NewFirestoreStore(client), client.Close, nil
}
