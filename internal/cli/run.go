package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/finpulse/backend/internal/logger"
	"github.com/finpulse/backend/internal/reconcile"
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runOwnerID, "owner", "", "Owner whose transactions to reconcile")
	runCmd.Flags().IntVar(&runWindowMonths, "window-months", 3, "Months around now to load periods for")
	_ = runCmd.MarkFlagRequired("owner")
}

var (
	runOwnerID      string
	runWindowMonths int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one reconciliation batch and print the summary",
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, _ []string) error {
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

	orchestrator, err := reconcile.New(st, cfg.EngineConfig(), log)
	if err != nil {
		return err
	}

	now := time.Now()
	summary, err := orchestrator.Run(cmd.Context(), runOwnerID,
		now.AddDate(0, -runWindowMonths, 0), now.AddDate(0, runWindowMonths, 0))
	if err != nil {
		return err
	}

	fmt.Printf("processed=%d matched=%d periodsUpdated=%d errors=%d\n",
		summary.Processed, summary.Matched, summary.PeriodsUpdated, len(summary.Errors))
	for _, e := range summary.Errors {
		fmt.Printf("  error: %s\n", e)
	}
	return nil
}
