package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finpulse/backend/internal/logger"
	"github.com/finpulse/backend/internal/provider"
)

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "JSON transaction file to ingest")
	ingestCmd.Flags().StringVar(&ingestOwnerID, "owner", "", "Owner to assign to transactions without one")
	_ = ingestCmd.MarkFlagRequired("file")
}

var (
	ingestFile    string
	ingestOwnerID string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load transactions from a JSON file into the store",
	Long: `Read transactions from a JSON file and create them in the document
store. This is the local stand-in for the upstream aggregator feed.`,
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New()

	st, closeStore, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer func() { _ = closeStore() }()
	}

	source := provider.NewFileSource(ingestFile)
	created, skipped := 0, 0
	cursor := ""
	for {
		txs, nextCursor, err := source.FetchTransactions(cmd.Context(), ingestOwnerID, cursor)
		if err != nil {
			return err
		}
		for _, tx := range txs {
			if err := st.CreateTransaction(cmd.Context(), tx); err != nil {
				log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("skipping transaction")
				skipped++
				continue
			}
			created++
		}
		if nextCursor == "" {
			break
		}
		cursor = nextCursor
	}

	fmt.Printf("ingested %d transactions (%d skipped)\n", created, skipped)
	return nil
}
