package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pable/go-tennis-mc/internal/metrics"
	"github.com/pable/go-tennis-mc/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve predictions over HTTP",
	Long: `Load every stored player model and answer prediction requests.

Endpoints:
  GET /healthz
  GET /players
  GET /players/{name}
  GET /predict?p1=<name>&p2=<name>[&format=tour|slam]
  GET /metrics        Prometheus metrics

Models are read once at startup; restart after ingesting new data.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	addEstimatorFlags(serveCmd)
	serveCmd.Flags().StringVar(&flagValues.Addr, "addr", flagValues.Addr, "listen address")
}

func runServe(cmd *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	reg, err := db.LoadRegistry(logger)
	db.Close()
	if err != nil {
		return fmt.Errorf("load players: %w", err)
	}

	m := metrics.NewManager()
	ev, err := newEvaluator(reg, m)
	if err != nil {
		return err
	}
	return server.New(reg, ev, m, logger).Run(cmd.Context(), cfg.Addr)
}
