package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/finpulse/backend/internal/api"
	"github.com/finpulse/backend/internal/logger"
	"github.com/finpulse/backend/internal/reconcile"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reconciliation HTTP server",
	Long: `Start the HTTP server exposing the batch reconciliation trigger,
health check and Prometheus metrics.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
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
	} else {
		log.Info().Msg("using in-memory store for local development")
	}

	orchestrator, err := reconcile.New(st, cfg.EngineConfig(), log)
	if err != nil {
		return err
	}

	server := api.NewServer(orchestrator, log, cfg.Server.AllowedOrigins)
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("starting reconciliation server")
	return http.ListenAndServe(addr, server.Handler())
}
